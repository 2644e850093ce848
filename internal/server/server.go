package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/shahar-caura/scout/internal/config"
	"github.com/shahar-caura/scout/internal/intent"
	"github.com/shahar-caura/scout/internal/llm"
	"github.com/shahar-caura/scout/internal/search"
	"github.com/shahar-caura/scout/internal/session"
)

// Searcher finds web results for a query.
type Searcher interface {
	Configured() bool
	Search(ctx context.Context, query string) (*search.Response, error)
}

// Generator streams answers and suggests follow-up questions.
type Generator interface {
	Configured() bool
	Stream(ctx context.Context, req llm.StreamRequest, onToken func(string) error) error
	GenerateQuestions(ctx context.Context, content string, results []search.Result, userQuery string) ([]string, error)
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Router *intent.Classifier
	Search Searcher
	LLM    Generator
	Store  session.Store
	// WatchDir is the file store directory. When set, session events are
	// read from the filesystem instead of published by the handlers.
	WatchDir string
	Version  string
	Logger   *slog.Logger
}

// Server is the research assistant HTTP API.
type Server struct {
	addr            string
	shutdownTimeout time.Duration
	version         string
	startTime       time.Time

	router    *intent.Classifier
	search    Searcher
	llm       Generator
	store     session.Store
	hub       *SSEHub
	validator *Validator
	logger    *slog.Logger

	// sessMu serializes load-modify-save cycles on sessions.
	sessMu sync.Mutex
}

// New creates a Server listening on cfg.Addr.
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	router := deps.Router
	if router == nil {
		router = intent.NewClassifier()
	}
	return &Server{
		addr:            cfg.Addr,
		shutdownTimeout: cfg.ShutdownTimeout.Duration,
		version:         deps.Version,
		startTime:       time.Now(),
		router:          router,
		search:          deps.Search,
		llm:             deps.LLM,
		store:           deps.Store,
		hub:             NewSSEHub(deps.WatchDir, deps.Store, deps.Logger),
		validator:       v,
		logger:          deps.Logger,
	}, nil
}

// Hub returns the server's event hub.
func (s *Server) Hub() *SSEHub { return s.hub }

// Handler returns the API routes wrapped in request validation.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/tool-call", s.handleToolCall)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/stream", s.handleStream)
	mux.HandleFunc("POST /api/generate-questions", s.handleGenerateQuestions)

	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /api/sessions", s.handleClearSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("PATCH /api/sessions/{id}", s.handleRenameSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/clear", s.handleClearSession)
	mux.HandleFunc("POST /api/sessions/{id}/messages", s.handleAddMessage)
	mux.HandleFunc("PATCH /api/sessions/{id}/messages/{mid}", s.handleUpdateMessage)
	mux.HandleFunc("POST /api/sessions/{id}/highlights", s.handleAddHighlight)
	mux.HandleFunc("DELETE /api/sessions/{id}/highlights/{hid}", s.handleRemoveHighlight)
	mux.HandleFunc("POST /api/sessions/{id}/bookmarks", s.handleAddBookmark)
	mux.HandleFunc("DELETE /api/sessions/{id}/bookmarks/{bid}", s.handleRemoveBookmark)
	mux.HandleFunc("POST /api/sessions/{id}/related-questions", s.handleAddRelatedQuestions)
	mux.HandleFunc("DELETE /api/sessions/{id}/related-questions/{mid}", s.handleRemoveRelatedQuestions)
	mux.HandleFunc("GET /api/sessions/{id}/search", s.handleSearchSession)

	// SSE endpoint; not in the OpenAPI document, so validation passes it through.
	mux.Handle("GET /api/events", s.hub)

	return s.validator.Middleware(mux)
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.hub.Start(ctx)

	// Start listener so we can log the actual address.
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}

	s.logger.Info("server started", "addr", ln.Addr().String(), "version", s.version, "live_events", s.hub.Watching())

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		timeout := s.shutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
