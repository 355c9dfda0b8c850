package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/medscribe/internal/apperr"
	"github.com/hyperjump/medscribe/internal/export"
	"github.com/hyperjump/medscribe/internal/models"
	"github.com/hyperjump/medscribe/internal/services"
	"github.com/hyperjump/medscribe/internal/session"
)

func reportView(sess *session.Session) models.ReportView {
	return models.ReportView{
		Initial:     sess.Report.Initial(),
		Current:     sess.Report.Current(),
		Modified:    sess.Report.Modified(),
		GeneratedAt: sess.Report.GeneratedAt(),
		UpdatedAt:   sess.Report.UpdatedAt(),
	}
}

func requireReport(sess *session.Session) error {
	if !sess.Report.HasReport() {
		return apperr.Conflict("no report generated yet")
	}
	return nil
}

// handleGenerate runs the diagnosis over the confirmed sources. A new report
// starts a new conversation.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.Review.RequireAllConfirmed(); err != nil {
		s.respondErr(w, err)
		return
	}
	res := s.deps.Diagnoser.Generate(r.Context(), sess.Registry.CombinedText())
	if !res.OK() {
		s.respondErr(w, res.Err())
		return
	}

	now := s.now()
	sess.Report.Set(res.Text, now)
	sess.Chat.Clear()
	if s.config.Features.ChatEnabled() {
		sess.Chat.Append(models.ChatMessage{Role: models.RoleAssistant, Content: services.Greeting, CreatedAt: now})
	}
	s.logger.Info("report generated",
		zap.String("session_id", sess.ID),
		zap.Int("report_words", res.WordCount))
	s.respondJSON(w, http.StatusOK, reportView(sess))
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := requireReport(sess); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, reportView(sess))
}

func (s *Server) handleEditReport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := requireReport(sess); err != nil {
		s.respondErr(w, err)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.respondErr(w, apperr.Validation("report text is empty"))
		return
	}
	sess.Report.Replace(req.Text, s.now())
	s.respondJSON(w, http.StatusOK, reportView(sess))
}

type chatResponse struct {
	Reply    models.ChatMessage `json:"reply"`
	Applied  bool               `json:"applied"`
	Report   *models.ReportView `json:"report,omitempty"`
	Messages int                `json:"messages"`
}

// handleChatSend sends one message. Both turns are stored only when the reply
// arrives; a reply that reads as a full report replaces the current one when
// auto-apply is on.
func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := requireReport(sess); err != nil {
		s.respondErr(w, err)
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.respondErr(w, apperr.Validation("message is empty"))
		return
	}

	reply := s.deps.Chatter.Reply(r.Context(), services.ChatInput{
		Report:  sess.Report.Current(),
		Sources: sess.Registry.CombinedText(),
		History: sess.Chat.Messages(),
		Message: req.Message,
	})
	if !reply.OK() {
		s.respondErr(w, reply.Err())
		return
	}

	now := s.now()
	sess.Chat.Append(models.ChatMessage{Role: models.RoleUser, Content: req.Message, CreatedAt: now})
	msg := models.ChatMessage{Role: models.RoleAssistant, Content: reply.Text, CreatedAt: now, Replacement: reply.Replacement}
	sess.Chat.Append(msg)

	resp := chatResponse{Reply: msg}
	if reply.Replacement && s.config.Services.Chat.AutoApplyOrDefault() {
		s.applyReport(sess, reply.Text)
		view := reportView(sess)
		resp.Applied = true
		resp.Report = &view
	}
	resp.Messages = sess.Chat.Len()
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) applyReport(sess *session.Session, text string) {
	now := s.now()
	sess.Report.Replace(text, now)
	sess.Chat.RecordModification(text, now)
	s.logger.Info("report replaced from chat", zap.String("session_id", sess.ID))
}

// handleChatApply applies the supplied text, or the latest reply that reads as
// a full report.
func (s *Server) handleChatApply(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := requireReport(sess); err != nil {
		s.respondErr(w, err)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, err)
		return
	}
	text := req.Text
	if strings.TrimSpace(text) == "" {
		msg, ok := sess.Chat.LastReplacement()
		if !ok {
			s.respondErr(w, apperr.Conflict("no replacement report in the conversation"))
			return
		}
		text = msg.Content
	}
	s.applyReport(sess, text)
	s.respondJSON(w, http.StatusOK, reportView(sess))
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"messages":      sess.Chat.Messages(),
		"modifications": sess.Chat.Modifications(),
	})
}

func (s *Server) handleChatClear(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Chat.Clear()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleChatSummary(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	w.Header().Set("Content-Type", export.ContentTypeText)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sess.Chat.Summary()))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	format := chi.URLParam(r, "format")
	var (
		body []byte
		err  error
	)
	switch format {
	case export.FormatReportText, export.FormatReportDocx:
		if err := requireReport(sess); err != nil {
			s.respondErr(w, err)
			return
		}
		if format == export.FormatReportText {
			body = export.ReportText(sess.Report.Current())
			break
		}
		transcript := ""
		if ok, _ := strconv.ParseBool(r.URL.Query().Get("transcript")); ok {
			transcript = export.Transcript(sess.Registry.ListConfirmed())
		}
		body, err = export.ReportDocx(sess.Report.Current(), transcript)
	case export.FormatSourcesText:
		body = export.SourcesText(sess.Registry.CombinedText())
	case export.FormatSourcesXLSX:
		body, err = export.SourcesWorkbook(sess.Registry.ListAll())
	default:
		s.respondErr(w, apperr.NotFound("unknown export %q (available: %s)", format, strings.Join(export.Formats, ", ")))
		return
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(format, s.now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
