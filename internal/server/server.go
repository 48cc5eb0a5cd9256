// Package server exposes the generator and the run history over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/cleangen/internal/config"
	"github.com/yourorg/cleangen/internal/dart"
	"github.com/yourorg/cleangen/internal/feature"
	"github.com/yourorg/cleangen/internal/naming"
	"github.com/yourorg/cleangen/internal/scaffold"
	"github.com/yourorg/cleangen/internal/schema"
	"github.com/yourorg/cleangen/internal/store"
	"github.com/yourorg/cleangen/internal/workspace"
	"github.com/yourorg/cleangen/pkg/types"
)

const maxBodyBytes = 4 << 20

// Server routes API requests to the generator and the store.
type Server struct {
	cfg       *config.Config
	store     store.Store
	router    *mux.Router
	accessLog *io.PipeWriter
}

// New constructs a new Server with routes registered.
func New(cfg *config.Config, st store.Store) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if st == nil {
		return nil, errors.New("store is nil")
	}

	srv := &Server{
		cfg:       cfg,
		store:     st,
		router:    mux.NewRouter(),
		accessLog: logrus.StandardLogger().WriterLevel(logrus.InfoLevel),
	}
	srv.registerRoutes()
	return srv, nil
}

// Handler returns the router wrapped with CORS and access logging.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	h := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(s.router)
	return handlers.CombinedLoggingHandler(s.accessLog, h)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", addr).Info("listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := httpSrv.Shutdown(shutdownCtx)
	_ = s.accessLog.Close()
	return err
}

func (s *Server) registerRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/generate", s.handleGenerate).Methods(http.MethodPost)
	api.HandleFunc("/models", s.handleModel).Methods(http.MethodPost)
	api.HandleFunc("/runs", s.handleRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.handleRunDetail).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.handleRunDelete).Methods(http.MethodDelete)
}

type generateRequest struct {
	Spec types.FeatureSpec `json:"spec"`
	// Write places the feature under output.dir in addition to recording it.
	Write bool `json:"write"`
}

type generateResponse struct {
	RunID     string           `json:"run_id"`
	Path      string           `json:"path,omitempty"`
	Artifacts []types.Artifact `json:"artifacts"`
	Skipped   []types.Skipped  `json:"skipped"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := normalizeVerbs(&req.Spec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := scaffold.Generate(r.Context(), req.Spec, scaffold.OptionsFromConfig(s.cfg.Generator))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, feature.ErrInvalidSpec) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	run, err := s.store.CreateRun("api", req.Spec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.store.SaveArtifacts(run.ID, res.Artifacts, res.Skipped); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := generateResponse{RunID: run.ID, Artifacts: res.Artifacts, Skipped: res.Skipped}
	if resp.Skipped == nil {
		resp.Skipped = []types.Skipped{}
	}
	if req.Write {
		root, err := workspace.Write(s.cfg.Output.Dir, scaffold.SnakeName(req.Spec.Name), res.Artifacts)
		if err != nil {
			_ = s.store.UpdateRunStatus(run.ID, types.RunFailed)
			status := http.StatusInternalServerError
			if errors.Is(err, workspace.ErrFeatureExists) {
				status = http.StatusConflict
			}
			http.Error(w, err.Error(), status)
			return
		}
		if err := s.store.UpdateRunStatus(run.ID, types.RunWritten); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp.Path = root
	}
	writeJSON(w, http.StatusOK, resp)
}

type modelRequest struct {
	Name    string `json:"name"`
	Literal string `json:"literal"`
}

type modelResponse struct {
	Name       string `json:"name"`
	SourceText string `json:"source_text"`
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	name := naming.ToType(strings.TrimSpace(req.Name))
	if name == "" {
		name = "Model"
	}
	cls, err := schema.Infer(req.Literal, name)
	if err != nil {
		if errors.Is(err, schema.ErrNotRepresentable) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	literal := req.Literal
	if s.cfg.Generator.OmitLiteralDocs {
		literal = ""
	}
	writeJSON(w, http.StatusOK, modelResponse{
		Name:       cls.Name,
		SourceText: dart.Emit(cls, literal, dart.Options{LegacyWireKeys: s.cfg.Generator.LegacyWireKeys}),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []types.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

type runDetail struct {
	Run       *types.Run       `json:"run"`
	Artifacts []types.Artifact `json:"artifacts"`
	Skipped   []types.Skipped  `json:"skipped"`
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	run, err := s.store.GetRun(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	artifacts, err := s.store.GetArtifacts(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	skipped, err := s.store.GetSkipped(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runDetail{Run: run, Artifacts: artifacts, Skipped: skipped})
}

func (s *Server) handleRunDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRun(mux.Vars(r)["id"]); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// normalizeVerbs accepts lower-case verbs and defaults an empty one to GET,
// as feature files do.
func normalizeVerbs(spec *types.FeatureSpec) error {
	for i := range spec.Endpoints {
		if spec.Endpoints[i].Verb == "" {
			spec.Endpoints[i].Verb = types.VerbGet
		}
		v, err := types.ParseVerb(string(spec.Endpoints[i].Verb))
		if err != nil {
			return err
		}
		spec.Endpoints[i].Verb = v
	}
	return nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
