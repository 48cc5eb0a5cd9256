package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yourorg/cleangen/internal/feature"
	"github.com/yourorg/cleangen/pkg/types"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection serializes writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			feature TEXT NOT NULL,
			source TEXT NOT NULL,
			endpoint_count INTEGER NOT NULL DEFAULT 0,
			artifact_count INTEGER NOT NULL DEFAULT 0,
			skipped_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			spec TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			relative_path TEXT NOT NULL,
			source_text TEXT NOT NULL,
			PRIMARY KEY(run_id, relative_path)
		);`,
		`CREATE TABLE IF NOT EXISTS skipped_literals (
			run_id TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			side TEXT NOT NULL,
			reason TEXT NOT NULL,
			PRIMARY KEY(run_id, endpoint, side)
		);`,
		`CREATE TABLE IF NOT EXISTS exchanges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			method TEXT NOT NULL,
			host TEXT NOT NULL,
			path TEXT NOT NULL,
			query_params TEXT,
			request_headers TEXT,
			request_body TEXT,
			request_body_encoding TEXT,
			content_type TEXT,
			status_code INTEGER NOT NULL,
			response_headers TEXT,
			response_body TEXT,
			response_content_type TEXT,
			latency_ms INTEGER NOT NULL,
			call_count INTEGER NOT NULL DEFAULT 1
		);`,
		`CREATE INDEX IF NOT EXISTS idx_exchanges_run ON exchanges(run_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateRun records spec, stored as YAML, under a new run id.
func (s *SQLiteStore) CreateRun(source string, spec types.FeatureSpec) (*types.Run, error) {
	doc, err := feature.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode feature spec: %w", err)
	}
	now := time.Now().UTC()
	id, err := s.nextRunID(now)
	if err != nil {
		return nil, err
	}
	run := &types.Run{
		ID:            id,
		Feature:       spec.Name,
		Source:        source,
		EndpointCount: len(spec.Endpoints),
		Status:        types.RunImported,
		Spec:          string(doc),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	_, err = s.db.Exec(`INSERT INTO runs(id,feature,source,endpoint_count,artifact_count,skipped_count,status,spec,created_at,updated_at) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Feature, run.Source, run.EndpointCount, run.ArtifactCount, run.SkippedCount, run.Status, run.Spec, run.CreatedAt, run.UpdatedAt)
	return run, err
}

func (s *SQLiteStore) nextRunID(now time.Time) (string, error) {
	prefix := fmt.Sprintf("run_%s_", now.Format("20060102"))
	rows, err := s.db.Query(`SELECT id FROM runs WHERE id LIKE ?`, prefix+"%")
	if err != nil {
		return "", err
	}
	defer rows.Close()
	maxN := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		var n int
		_, _ = fmt.Sscanf(id, prefix+"%03d", &n)
		if n > maxN {
			maxN = n
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%03d", prefix, maxN+1), nil
}

const runColumns = `id,feature,source,endpoint_count,artifact_count,skipped_count,status,spec,created_at,updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*types.Run, error) {
	var r types.Run
	if err := row.Scan(&r.ID, &r.Feature, &r.Source, &r.EndpointCount, &r.ArtifactCount, &r.SkippedCount, &r.Status, &r.Spec, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) GetRun(id string) (*types.Run, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

func (s *SQLiteStore) UpdateRunStatus(id, status string) error {
	res, err := s.db.Exec(`UPDATE runs SET status=?, updated_at=? WHERE id=?`, status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) ListRuns() ([]types.Run, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteRun(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, stmt := range []string{
		`DELETE FROM artifacts WHERE run_id=?`,
		`DELETE FROM skipped_literals WHERE run_id=?`,
		`DELETE FROM exchanges WHERE run_id=?`,
	} {
		if _, err := tx.Exec(stmt, id); err != nil {
			return err
		}
	}
	res, err := tx.Exec(`DELETE FROM runs WHERE id=?`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res, id); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveArtifacts stores the output of a run. Saving again replaces artifacts
// with the same path and the skipped list.
func (s *SQLiteStore) SaveArtifacts(runID string, artifacts []types.Artifact, skipped []types.Skipped) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(`INSERT INTO artifacts(run_id,seq,relative_path,source_text) VALUES(?,?,?,?)
	ON CONFLICT(run_id,relative_path) DO UPDATE SET seq=excluded.seq,source_text=excluded.source_text`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, a := range artifacts {
		if _, err := stmt.Exec(runID, i+1, a.RelativePath, a.SourceText); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`DELETE FROM skipped_literals WHERE run_id=?`, runID); err != nil {
		return err
	}
	for _, sk := range skipped {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO skipped_literals(run_id,endpoint,side,reason) VALUES(?,?,?,?)`, runID, sk.Endpoint, sk.Side, sk.Reason); err != nil {
			return err
		}
	}
	res, err := tx.Exec(`UPDATE runs SET
		artifact_count=(SELECT COUNT(*) FROM artifacts WHERE run_id=?),
		skipped_count=?, status=?, updated_at=? WHERE id=?`,
		runID, len(skipped), types.RunGenerated, time.Now().UTC(), runID)
	if err != nil {
		return err
	}
	if err := requireRow(res, runID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetArtifacts(runID string) ([]types.Artifact, error) {
	rows, err := s.db.Query(`SELECT relative_path,source_text FROM artifacts WHERE run_id=? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]types.Artifact, 0)
	for rows.Next() {
		var a types.Artifact
		if err := rows.Scan(&a.RelativePath, &a.SourceText); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetSkipped(runID string) ([]types.Skipped, error) {
	rows, err := s.db.Query(`SELECT endpoint,side,reason FROM skipped_literals WHERE run_id=? ORDER BY rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]types.Skipped, 0)
	for rows.Next() {
		var sk types.Skipped
		if err := rows.Scan(&sk.Endpoint, &sk.Side, &sk.Reason); err != nil {
			return nil, err
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

// SaveExchanges keeps the captured traffic an imported run was built from.
func (s *SQLiteStore) SaveExchanges(runID string, exchanges []types.Exchange) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(`INSERT INTO exchanges(run_id,seq,method,host,path,query_params,request_headers,request_body,request_body_encoding,content_type,status_code,response_headers,response_body,response_content_type,latency_ms,call_count) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, ex := range exchanges {
		qp, _ := json.Marshal(ex.QueryParams)
		rh, _ := json.Marshal(ex.RequestHeaders)
		respH, _ := json.Marshal(ex.ResponseHeaders)
		callCount := ex.CallCount
		if callCount == 0 {
			callCount = 1
		}
		if _, err := stmt.Exec(runID, ex.Seq, ex.Method, ex.Host, ex.Path, string(qp), string(rh), ex.RequestBody, ex.RequestBodyEncoding, ex.ContentType, ex.StatusCode, string(respH), ex.ResponseBody, ex.ResponseContentType, ex.LatencyMs, callCount); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`UPDATE runs SET updated_at=? WHERE id=?`, time.Now().UTC(), runID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetExchanges(runID string) ([]types.Exchange, error) {
	rows, err := s.db.Query(`SELECT seq,method,host,path,query_params,request_headers,request_body,request_body_encoding,content_type,status_code,response_headers,response_body,response_content_type,latency_ms,call_count FROM exchanges WHERE run_id=? ORDER BY seq ASC, id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]types.Exchange, 0)
	for rows.Next() {
		var ex types.Exchange
		var qpS, rhS, respHS string
		if err := rows.Scan(&ex.Seq, &ex.Method, &ex.Host, &ex.Path, &qpS, &rhS, &ex.RequestBody, &ex.RequestBodyEncoding, &ex.ContentType, &ex.StatusCode, &respHS, &ex.ResponseBody, &ex.ResponseContentType, &ex.LatencyMs, &ex.CallCount); err != nil {
			return nil, err
		}
		if qpS != "" {
			_ = json.Unmarshal([]byte(qpS), &ex.QueryParams)
		}
		if rhS != "" {
			_ = json.Unmarshal([]byte(rhS), &ex.RequestHeaders)
		}
		if respHS != "" {
			_ = json.Unmarshal([]byte(respHS), &ex.ResponseHeaders)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return errors.New("store is nil")
	}
	return s.db.Close()
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
