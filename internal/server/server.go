package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/thinkscotty/postmuse/internal/config"
	"github.com/thinkscotty/postmuse/internal/database"
	"github.com/thinkscotty/postmuse/internal/history"
	"github.com/thinkscotty/postmuse/internal/keystore"
	"github.com/thinkscotty/postmuse/internal/knowledge"
	"github.com/thinkscotty/postmuse/internal/metrics"
	"github.com/thinkscotty/postmuse/internal/mode"
	"github.com/thinkscotty/postmuse/internal/pipeline"
	"github.com/thinkscotty/postmuse/internal/prefs"
)

// Deps are the services the API exposes.
type Deps struct {
	DB       *database.DB
	Pipeline *pipeline.Pipeline
	Topics   *knowledge.Store
	History  *history.History
	Prefs    *prefs.Prefs
	Keys     *keystore.Store
	Mode     *mode.Resolver
	Version  string
}

type Server struct {
	cfg     config.ServerConfig
	deps    Deps
	handler http.Handler
	httpSrv *http.Server
}

func New(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}

	mux := http.NewServeMux()
	s.routes(mux)
	s.handler = recoveryMiddleware(loggingMiddleware(mux))
	return s
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSeconds) * time.Second,
	}

	slog.Info("Starting server", "addr", addr)
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) routes(mux *http.ServeMux) {
	// Public
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.requireToken(h))
	}

	api("POST /api/v1/share", s.handleShare)
	api("POST /api/v1/share/{id}/refresh", s.handleShareRefresh)
	api("POST /api/v1/share/{id}/toggle", s.handleShareToggle)
	api("POST /api/v1/posts", s.handleCreatePost)

	api("GET /api/v1/topics", s.handleTopicList)
	api("POST /api/v1/topics", s.handleTopicCreate)
	api("DELETE /api/v1/topics", s.handleTopicDeleteAll)
	api("POST /api/v1/topics/import", s.handleTopicImport)
	api("GET /api/v1/topics/{file}", s.handleTopicGet)
	api("PUT /api/v1/topics/{file}", s.handleTopicSave)
	api("DELETE /api/v1/topics/{file}", s.handleTopicDelete)

	api("GET /api/v1/history", s.handleHistoryList)
	api("DELETE /api/v1/history", s.handleHistoryClear)
	api("DELETE /api/v1/history/{id}", s.handleHistoryDelete)

	api("GET /api/v1/settings", s.handleSettingsGet)
	api("PUT /api/v1/settings", s.handleSettingsUpdate)
	api("GET /api/v1/keys", s.handleKeysList)
	api("PUT /api/v1/keys/{capability}", s.handleKeySet)

	api("GET /api/v1/mode", s.handleModeGet)
	api("POST /api/v1/mode/toggle", s.handleModeToggle)
	api("PUT /api/v1/mode/override", s.handleModeOverride)
	api("DELETE /api/v1/mode/override", s.handleModeClear)
	api("GET /api/v1/platform", s.handleModeGet)
	api("POST /api/v1/platform/toggle", s.handlePlatformToggle)
	api("PUT /api/v1/platform/override", s.handlePlatformOverride)
	api("DELETE /api/v1/platform/override", s.handlePlatformClear)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":   "ok",
		"version":  s.deps.Version,
		"sessions": s.deps.Pipeline.Sessions().Len(),
	}
	if size, err := s.deps.DB.DatabaseSizeBytes(); err == nil {
		resp["db_bytes"] = size
	}
	jsonResponse(w, resp)
}
