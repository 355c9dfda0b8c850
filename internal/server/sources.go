package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/medscribe/internal/apperr"
	"github.com/hyperjump/medscribe/internal/ingest"
	"github.com/hyperjump/medscribe/internal/models"
	"github.com/hyperjump/medscribe/internal/services"
	"github.com/hyperjump/medscribe/internal/session"
)

const multipartMemory = 32 << 20

type uploadResponse struct {
	Outcomes  []ingest.Outcome `json:"outcomes"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Summary   models.Summary   `json:"summary"`
}

// readUploads parses the multipart "files" field within the configured size limit.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]ingest.Upload, error) {
	if mb := s.config.Server.MaxUploadMB; mb > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(mb)<<20)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, apperr.Validation("upload exceeds %d MB", s.config.Server.MaxUploadMB)
		}
		return nil, apperr.Validation("expected multipart form with files")
	}
	// Parts are copied into memory below. net/http only removes spilled temp
	// files for the request it created, not for middleware copies.
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Warn("failed to remove multipart temp files", zap.Error(err))
		}
	}()
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, apperr.Validation("no files provided")
	}
	uploads := make([]ingest.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, ingest.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) respondOutcomes(w http.ResponseWriter, sess *session.Session, outcomes []ingest.Outcome) {
	ok, failed := ingest.Counts(outcomes)
	s.logger.Info("upload processed",
		zap.String("session_id", sess.ID),
		zap.Int("succeeded", ok),
		zap.Int("failed", failed))
	s.respondJSON(w, http.StatusOK, uploadResponse{
		Outcomes:  outcomes,
		Succeeded: ok,
		Failed:    failed,
		Summary:   sess.Registry.Summary(),
	})
}

func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	uploads, err := s.readUploads(w, r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	outcomes, err := s.deps.Ingestor.Audio(r.Context(), sess.Registry, uploads)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondOutcomes(w, sess, outcomes)
}

func (s *Server) handleUploadDocuments(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	uploads, err := s.readUploads(w, r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	mode, ok := services.ParseMode(r.FormValue("mode"))
	if !ok {
		s.respondErr(w, apperr.Validation("unknown OCR mode %q", r.FormValue("mode")))
		return
	}
	opts := ingest.DocumentOptions{Mode: mode, Fields: parseFields(r.MultipartForm.Value["fields"])}
	outcomes, err := s.deps.Ingestor.Documents(r.Context(), sess.Registry, uploads, opts)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondOutcomes(w, sess, outcomes)
}

// parseFields accepts repeated fields values, each optionally comma or newline separated.
func parseFields(values []string) []string {
	var fields []string
	for _, v := range values {
		for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '\n' }) {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}
	return fields
}

func (s *Server) handleAddManual(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		Filename string `json:"filename"`
		Text     string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, err)
		return
	}
	out, err := s.deps.Ingestor.Manual(sess.Registry, req.Filename, req.Text)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	src, _ := sess.Registry.Get(out.SourceID)
	s.respondJSON(w, http.StatusCreated, src)
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var list []models.Source
	switch status := r.URL.Query().Get("status"); status {
	case "", "all":
		list = sess.Registry.ListAll()
	default:
		st, ok := models.ParseSourceStatus(status)
		if !ok {
			s.respondErr(w, apperr.Validation("unknown status %q", status))
			return
		}
		if st == models.StatusPending {
			list = sess.Registry.ListPending()
		} else {
			list = sess.Registry.ListConfirmed()
		}
	}
	if typ := r.URL.Query().Get("type"); typ != "" {
		st, ok := models.ParseSourceType(typ)
		if !ok {
			s.respondErr(w, apperr.Validation("unknown source type %q", typ))
			return
		}
		filtered := make([]models.Source, 0, len(list))
		for _, src := range list {
			if src.Type == st {
				filtered = append(filtered, src)
			}
		}
		list = filtered
	}
	if list == nil {
		list = []models.Source{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"sources": list, "count": len(list)})
}

func (s *Server) handleClearSources(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	n := sess.Registry.Len()
	sess.Registry.Clear()
	sess.Review.Close()
	s.logger.Info("sources cleared", zap.String("session_id", sess.ID), zap.Int("removed", n))
	s.respondJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) handleBulkConfirm(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	n := sess.Registry.BulkConfirm()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"confirmed": n,
		"summary":   sess.Registry.Summary(),
	})
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, err := sourceID(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	src, ok := sess.Registry.Get(id)
	if !ok {
		s.respondErr(w, apperr.NotFound("source %d not found", id))
		return
	}
	s.respondJSON(w, http.StatusOK, src)
}

func (s *Server) handleUpdateText(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, err := sourceID(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	var req struct {
		Text *string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, err)
		return
	}
	if req.Text == nil {
		s.respondErr(w, apperr.Validation("text is required"))
		return
	}
	if !sess.Registry.UpdateText(id, *req.Text) {
		s.respondErr(w, apperr.NotFound("source %d not found", id))
		return
	}
	src, _ := sess.Registry.Get(id)
	s.respondJSON(w, http.StatusOK, src)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, err := sourceID(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if !sess.Registry.Confirm(id) {
		s.respondErr(w, apperr.NotFound("source %d not found", id))
		return
	}
	src, _ := sess.Registry.Get(id)
	s.respondJSON(w, http.StatusOK, src)
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, err := sourceID(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if !sess.Registry.Discard(id) {
		s.respondErr(w, apperr.NotFound("source %d not found", id))
		return
	}
	s.logger.Debug("source discarded", zap.String("session_id", sess.ID), zap.Int("source_id", id))
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "discarded", "id": id})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.respondJSON(w, http.StatusOK, sess.Registry.Summary())
}

func (s *Server) handleCombined(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, sess.Registry.CombinedText())
}

func (s *Server) handleReviewCurrent(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	src, ok := sess.Review.Current()
	if !ok {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"reviewing": false})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"reviewing": true, "source": src})
}

func (s *Server) handleReviewOpen(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		ID int `json:"id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, err)
		return
	}
	if err := sess.Review.Open(req.ID); err != nil {
		s.respondErr(w, err)
		return
	}
	src, _ := sess.Review.Current()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"reviewing": true, "source": src})
}

func (s *Server) handleReviewClose(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Review.Close()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"reviewing": false})
}

func (s *Server) handleReviewAccept(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		Text *string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, err)
		return
	}
	src, err := sess.Review.Accept(req.Text)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, src)
}

func (s *Server) handleReviewReject(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, err := sess.Review.Reject()
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "discarded", "id": id})
}
