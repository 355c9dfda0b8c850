// Package server provides the HTTP API for medscribe sessions.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/medscribe/internal/archive"
	"github.com/hyperjump/medscribe/internal/config"
	"github.com/hyperjump/medscribe/internal/ingest"
	"github.com/hyperjump/medscribe/internal/services"
	"github.com/hyperjump/medscribe/internal/session"
	"github.com/hyperjump/medscribe/pkg/utils"
)

// Diagnoser generates a report from combined source text.
type Diagnoser interface {
	Generate(ctx context.Context, combined string) services.Result
}

// Chatter answers one chat turn about a report.
type Chatter interface {
	Reply(ctx context.Context, in services.ChatInput) services.ChatReply
}

// Deps are the components the server routes requests to. Archive may be nil.
type Deps struct {
	Sessions  *session.Manager
	Ingestor  *ingest.Ingestor
	Diagnoser Diagnoser
	Chatter   Chatter
	Archive   *archive.Archive
}

// Server is the HTTP server for the medscribe API.
type Server struct {
	deps   Deps
	config *config.Config
	logger *zap.Logger
	now    func() time.Time
	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides time.Now for report and chat timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer creates a server with the given dependencies.
func NewServer(cfg *config.Config, deps Deps, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		deps:   deps,
		config: cfg,
		logger: utils.OrNop(logger),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler with every route mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if t := s.config.Server.RequestTimeout; t > 0 {
		r.Use(middleware.Timeout(t))
	}

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{sid}", func(r chi.Router) {
			r.Get("/", s.withSession(s.handleGetSession))
			r.Delete("/", s.handleDeleteSession)

			r.Post("/audio", s.withSession(s.handleUploadAudio))
			r.Post("/documents", s.withSession(s.handleUploadDocuments))

			r.Post("/sources", s.withSession(s.handleAddManual))
			r.Get("/sources", s.withSession(s.handleListSources))
			r.Delete("/sources", s.withSession(s.handleClearSources))
			r.Post("/sources/confirm", s.withSession(s.handleBulkConfirm))
			r.Get("/sources/{id}", s.withSession(s.handleGetSource))
			r.Put("/sources/{id}/text", s.withSession(s.handleUpdateText))
			r.Post("/sources/{id}/confirm", s.withSession(s.handleConfirm))
			r.Delete("/sources/{id}", s.withSession(s.handleDiscard))
			r.Get("/summary", s.withSession(s.handleSummary))
			r.Get("/combined", s.withSession(s.handleCombined))

			r.Group(func(r chi.Router) {
				r.Use(s.requireFeature("review", s.config.Features.ReviewEnabled()))
				r.Get("/review", s.withSession(s.handleReviewCurrent))
				r.Post("/review", s.withSession(s.handleReviewOpen))
				r.Delete("/review", s.withSession(s.handleReviewClose))
				r.Post("/review/accept", s.withSession(s.handleReviewAccept))
				r.Post("/review/reject", s.withSession(s.handleReviewReject))
			})

			r.Post("/diagnosis", s.withSession(s.handleGenerate))
			r.Get("/report", s.withSession(s.handleGetReport))
			r.Put("/report", s.withSession(s.handleEditReport))

			r.Group(func(r chi.Router) {
				r.Use(s.requireFeature("chat", s.config.Features.ChatEnabled()))
				r.Get("/chat", s.withSession(s.handleChatHistory))
				r.Post("/chat", s.withSession(s.handleChatSend))
				r.Delete("/chat", s.withSession(s.handleChatClear))
				r.Post("/chat/apply", s.withSession(s.handleChatApply))
				r.Get("/chat/summary", s.withSession(s.handleChatSummary))
			})

			r.Get("/export/{format}", s.withSession(s.handleExport))

			r.With(s.requireArchive).Post("/archive", s.withSession(s.handleArchiveReport))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(s.requireArchive)
			r.Get("/", s.handleListReports)
			r.Get("/search", s.handleSearchReports)
			r.Get("/{rid}", s.handleGetReportArchive)
			r.Delete("/{rid}", s.handleDeleteReportArchive)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
