package services

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/medscribe/internal/apperr"
	"github.com/hyperjump/medscribe/internal/config"
)

// Diagnoser turns combined source text into a report following ReportTemplate.
type Diagnoser struct {
	base
}

// NewDiagnoser returns a diagnosis adapter.
func NewDiagnoser(svc config.ServiceConfig, opts ...Option) *Diagnoser {
	return &Diagnoser{base: newBase(svc, opts)}
}

// Generate produces a formatted report from the combined confirmed text.
func (d *Diagnoser) Generate(ctx context.Context, combined string) Result {
	if strings.TrimSpace(combined) == "" {
		return failed("", apperr.Validation("no confirmed source text"))
	}
	text, err := d.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: diagnosisSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: diagnosisPrompt(combined)},
	})
	if err != nil {
		d.logger.Warn("diagnosis generation failed", zap.String("kind", string(apperr.KindOf(err))), zap.Error(err))
		return failed("", err)
	}
	d.logger.Debug("diagnosis generated",
		zap.Int("input_chars", len(combined)),
		zap.Int("report_chars", len(text)))
	return succeeded("", text, 0)
}
