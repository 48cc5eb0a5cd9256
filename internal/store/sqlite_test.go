package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/cleangen/internal/feature"
	"github.com/yourorg/cleangen/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cleangen.db"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func sampleSpec() types.FeatureSpec {
	return types.FeatureSpec{
		Name: "auth",
		Endpoints: []types.EndpointSpec{
			{Name: "login", Path: "/auth/login", Verb: types.VerbPost, Request: "{\n  \"email\": \"a@b.c\"\n}\n", Response: `{"token":"t"}`},
			{Name: "logout", Path: "/auth/logout", Verb: types.VerbDelete},
		},
	}
}

func TestRunAndArtifactsCRUD(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	run, err := s.CreateRun("cli", sampleSpec())
	if err != nil {
		t.Fatal(err)
	}
	wantPrefix := "run_" + time.Now().UTC().Format("20060102") + "_"
	if run.ID != wantPrefix+"001" {
		t.Fatalf("unexpected run id %q", run.ID)
	}
	if run.EndpointCount != 2 || run.Status != types.RunImported {
		t.Fatalf("unexpected run %+v", run)
	}

	artifacts := []types.Artifact{
		{RelativePath: "data/models/login_model.dart", SourceText: "class LoginModel {}\n"},
		{RelativePath: "auth_di.dart", SourceText: "Future<void> authDI() async {}\n"},
	}
	skipped := []types.Skipped{{Endpoint: "logout", Side: "response", Reason: "array literal is empty"}}
	if err := s.SaveArtifacts(run.ID, artifacts, skipped); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetArtifacts(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != artifacts[0] || got[1] != artifacts[1] {
		t.Fatalf("artifacts mismatch: %+v", got)
	}
	gotSkipped, err := s.GetSkipped(run.ID)
	if err != nil || len(gotSkipped) != 1 || gotSkipped[0] != skipped[0] {
		t.Fatalf("skipped mismatch: %+v err=%v", gotSkipped, err)
	}

	stored, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ArtifactCount != 2 || stored.SkippedCount != 1 || stored.Status != types.RunGenerated {
		t.Fatalf("run counters not updated: %+v", stored)
	}
	spec, err := feature.Parse([]byte(stored.Spec))
	if err != nil {
		t.Fatalf("stored spec does not parse: %v", err)
	}
	if spec.Endpoints[0].Request != sampleSpec().Endpoints[0].Request {
		t.Fatalf("request literal not preserved: %q", spec.Endpoints[0].Request)
	}

	if err := s.UpdateRunStatus(run.ID, types.RunWritten); err != nil {
		t.Fatal(err)
	}
	if stored, _ := s.GetRun(run.ID); stored.Status != types.RunWritten {
		t.Fatalf("status not updated: %s", stored.Status)
	}
}

func TestRunIDsIncrement(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	for i := 1; i <= 3; i++ {
		run, err := s.CreateRun("cli", sampleSpec())
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasSuffix(run.ID, fmt.Sprintf("_%03d", i)) {
			t.Fatalf("run %d got id %s", i, run.ID)
		}
	}
	runs, err := s.ListRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 || !strings.HasSuffix(runs[0].ID, "_003") {
		t.Fatalf("expected newest run first, got %+v", runs)
	}
}

func TestMissingRun(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, err := s.GetRun("run_19700101_001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateRunStatus("nope", types.RunFailed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteRun("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SaveArtifacts("nope", nil, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExchangesAndCascadeDelete(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	run, _ := s.CreateRun("har", sampleSpec())
	if err := s.SaveExchanges(run.ID, []types.Exchange{{Seq: 1, Method: "GET", Host: "api.example.com", Path: "/v1/me", QueryParams: map[string][]string{"a": {"1", "2"}}, RequestHeaders: map[string]string{"Accept": "application/json"}, RequestBodyEncoding: "plain", StatusCode: 200, ResponseHeaders: map[string]string{"Content-Type": "application/json"}, LatencyMs: 10}}); err != nil {
		t.Fatal(err)
	}
	exchanges, err := s.GetExchanges(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(exchanges) != 1 || exchanges[0].Path != "/v1/me" || len(exchanges[0].QueryParams["a"]) != 2 || exchanges[0].CallCount != 1 {
		t.Fatalf("unexpected exchanges %+v", exchanges)
	}
	_ = s.SaveArtifacts(run.ID, []types.Artifact{{RelativePath: "a.dart", SourceText: "x"}}, nil)

	if err := s.DeleteRun(run.ID); err != nil {
		t.Fatal(err)
	}
	if exchanges, _ := s.GetExchanges(run.ID); len(exchanges) != 0 {
		t.Fatalf("expected exchanges deleted")
	}
	if artifacts, _ := s.GetArtifacts(run.ID); len(artifacts) != 0 {
		t.Fatalf("expected artifacts deleted")
	}
	if _, err := s.GetRun(run.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected run deleted, got %v", err)
	}
}

func TestConcurrentReadWrite(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	run, _ := s.CreateRun("cli", sampleSpec())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.SaveExchanges(run.ID, []types.Exchange{{Seq: i + 1, Method: "GET", Host: "api.example.com", Path: fmt.Sprintf("/v1/%d", i), RequestBodyEncoding: "plain", StatusCode: 200, LatencyMs: 1}})
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.ListRuns()
		}()
	}
	wg.Wait()

	exchanges, err := s.GetExchanges(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(exchanges) != 10 {
		t.Fatalf("expected 10 exchanges, got %d", len(exchanges))
	}
}
