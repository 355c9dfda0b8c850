package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/medscribe/internal/apperr"
	"github.com/hyperjump/medscribe/internal/models"
	"github.com/hyperjump/medscribe/internal/session"
)

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves {sid} and holds the session lock for the whole request.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := chi.URLParam(r, "sid")
		sess, ok := s.deps.Sessions.Get(sid)
		if !ok {
			s.respondErr(w, apperr.NotFound("session not found: %s", sid))
			return
		}
		sess.Lock()
		defer sess.Unlock()
		h(w, r, sess)
	}
}

func (s *Server) requireFeature(name string, enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				s.respondErr(w, apperr.Disabled(name))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) requireArchive(next http.Handler) http.Handler {
	return s.requireFeature("archive", s.deps.Archive != nil)(next)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"sessions": s.deps.Sessions.Count(),
		"features": map[string]bool{
			"chat":          s.config.Features.ChatEnabled(),
			"chunked_audio": s.config.Features.ChunkedAudioEnabled(),
			"review":        s.config.Features.ReviewEnabled(),
			"archive":       s.deps.Archive != nil,
		},
	}
	if a := s.deps.Archive; a != nil {
		n, err := a.Count(r.Context())
		if err != nil {
			s.logger.Error("status: count reports failed", zap.Error(err))
			s.respondErr(w, err)
			return
		}
		resp["archived_reports"] = n
		if bytes, err := a.DiskUsage(); err == nil {
			resp["archive_disk_usage_bytes"] = bytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type sessionView struct {
	ID             string         `json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	Summary        models.Summary `json:"summary"`
	ReviewSourceID int            `json:"review_source_id,omitempty"`
	HasReport      bool           `json:"has_report"`
	ReportModified bool           `json:"report_modified"`
	ChatMessages   int            `json:"chat_messages"`
	CanGenerate    bool           `json:"can_generate"`
}

func viewSession(sess *session.Session) sessionView {
	return sessionView{
		ID:             sess.ID,
		CreatedAt:      sess.CreatedAt,
		Summary:        sess.Registry.Summary(),
		ReviewSourceID: sess.Review.CurrentID(),
		HasReport:      sess.Report.HasReport(),
		ReportModified: sess.Report.HasReport() && sess.Report.Modified(),
		ChatMessages:   sess.Chat.Len(),
		CanGenerate:    sess.Review.CanGenerate(),
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.deps.Sessions.Create()
	s.respondJSON(w, http.StatusCreated, viewSession(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.respondJSON(w, http.StatusOK, viewSession(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	if !s.deps.Sessions.Delete(sid) {
		s.respondErr(w, apperr.NotFound("session not found: %s", sid))
		return
	}
	s.logger.Info("session deleted", zap.String("session_id", sid))
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("invalid request body")
	}
	return nil
}

func sourceID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid source id %q", raw)
	}
	return id, nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string, kind apperr.Kind) {
	s.respondJSON(w, status, map[string]string{"error": message, "kind": string(kind)})
}

// respondErr maps err to a status through its kind. Internal errors are logged.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError && kind == apperr.KindInternal {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respondError(w, status, err.Error(), kind)
}
