package services

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/medscribe/internal/apperr"
	"github.com/hyperjump/medscribe/internal/config"
)

// Transcriber converts consultation audio to text with a Whisper-compatible endpoint.
type Transcriber struct {
	base
	allowed []string
}

// NewTranscriber returns a transcriber accepting the given audio extensions.
func NewTranscriber(svc config.ServiceConfig, allowed []string, opts ...Option) *Transcriber {
	return &Transcriber{base: newBase(svc, opts), allowed: allowed}
}

// Transcribe returns the plain-text transcript of one audio file.
func (t *Transcriber) Transcribe(ctx context.Context, filename string, data []byte) Result {
	text, err := t.transcribe(ctx, filename, data)
	if err != nil {
		t.logger.Warn("transcription failed",
			zap.String("filename", filename),
			zap.String("kind", string(apperr.KindOf(err))),
			zap.Error(err))
		return failed(filename, err)
	}
	res := succeeded(filename, text, len(data))
	t.logger.Debug("transcribed audio", zap.String("filename", filename), zap.Int("words", res.WordCount))
	return res
}

func (t *Transcriber) transcribe(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !config.AllowedExtension(t.allowed, ext) {
		return "", apperr.Validation("unsupported audio format %q", ext)
	}
	if len(data) == 0 {
		return "", apperr.Validation("empty audio file")
	}
	client, err := t.client()
	if err != nil {
		return "", err
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.svc.Model,
		FilePath: filepath.Base(filename),
		Reader:   bytes.NewReader(data),
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", classify(err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", apperr.New(apperr.KindEmpty, "no speech recognised", nil)
	}
	return text, nil
}
