package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hyperjump/medscribe/internal/archive"
	"github.com/hyperjump/medscribe/internal/models"
	"github.com/hyperjump/medscribe/internal/session"
)

func (s *Server) handleArchiveReport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := requireReport(sess); err != nil {
		s.respondErr(w, err)
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, err)
		return
	}
	sum := sess.Registry.Summary()
	meta := map[string]interface{}{
		"confirmed_sources": sum.Confirmed,
		"total_words":       sum.TotalWords,
		"by_type":           sum.ByType,
		"modified":          sess.Report.Modified(),
		"chat_messages":     sess.Chat.Len(),
		"edited_sources":    editedSources(sess.Registry.ListConfirmed()),
	}
	if cs := sess.Chat.Summary(); cs != "" {
		meta["chat_summary"] = cs
	}
	saved, err := s.deps.Archive.Save(r.Context(), archive.Entry{
		SessionID: sess.ID,
		Title:     req.Title,
		Report:    sess.Report.Current(),
		Initial:   sess.Report.Initial(),
		Metadata:  meta,
	})
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, saved)
}

func editedSources(sources []models.Source) int {
	n := 0
	for i := range sources {
		if sources[i].Edited() {
			n++
		}
	}
	return n
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	reports, err := s.deps.Archive.List(r.Context(), offset, limit)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if reports == nil {
		reports = []*models.ArchivedReport{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"reports": reports, "count": len(reports)})
}

func (s *Server) handleSearchReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	fuzzy, _ := strconv.ParseBool(q.Get("fuzzy"))
	res, err := s.deps.Archive.Search(r.Context(), q.Get("q"), limit, fuzzy)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetReportArchive(w http.ResponseWriter, r *http.Request) {
	rep, err := s.deps.Archive.Get(r.Context(), chi.URLParam(r, "rid"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, rep)
}

func (s *Server) handleDeleteReportArchive(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Archive.Delete(r.Context(), chi.URLParam(r, "rid")); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
