package services

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/medscribe/internal/apperr"
	"github.com/hyperjump/medscribe/internal/config"
)

// Mode selects full-text or field extraction for OCR.
type Mode string

const (
	ModeFull       Mode = "full"
	ModeStructured Mode = "structured"
)

// ParseMode parses an OCR mode; blank means full.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeFull:
		return ModeFull, true
	case ModeStructured:
		return ModeStructured, true
	default:
		return "", false
	}
}

// File is an uploaded file held in memory.
type File struct {
	Name string
	Data []byte
}

// OCR reads text from document images with a vision chat model.
type OCR struct {
	base
	allowed []string
	maxDim  int
}

// NewOCR returns an OCR adapter accepting the given image extensions.
func NewOCR(cfg config.OCRConfig, allowed []string, opts ...Option) *OCR {
	o := &OCR{base: newBase(cfg.ServiceConfig, opts), allowed: allowed, maxDim: cfg.MaxImageDimension}
	o.headers = map[string]string{}
	if cfg.Referer != "" {
		o.headers["HTTP-Referer"] = cfg.Referer
	}
	if cfg.Title != "" {
		o.headers["X-Title"] = cfg.Title
	}
	return o
}

// Extract runs OCR on one image with the given instruction; an empty prompt uses
// DefaultOCRPrompt.
func (o *OCR) Extract(ctx context.Context, filename string, data []byte, prompt string) Result {
	if prompt == "" {
		prompt = DefaultOCRPrompt
	}
	text, err := o.extract(ctx, filename, data, prompt)
	if err != nil {
		o.logger.Warn("ocr failed",
			zap.String("filename", filename),
			zap.String("kind", string(apperr.KindOf(err))),
			zap.Error(err))
		return failed(filename, err)
	}
	res := succeeded(filename, text, len(data))
	o.logger.Debug("ocr extracted text", zap.String("filename", filename), zap.Int("words", res.WordCount))
	return res
}

// StructuredFields extracts only the named fields, one "Field: value" per line.
func (o *OCR) StructuredFields(ctx context.Context, filename string, data []byte, fields []string) Result {
	if len(fields) == 0 {
		return failed(filename, apperr.Validation("no fields requested"))
	}
	return o.Extract(ctx, filename, data, structuredPrompt(fields))
}

// Batch processes files in order. A failure is recorded for its file and the
// remaining files are still processed.
func (o *OCR) Batch(ctx context.Context, files []File, mode Mode, fields []string) []Result {
	results := make([]Result, 0, len(files))
	for _, f := range files {
		if mode == ModeStructured && len(fields) > 0 {
			results = append(results, o.StructuredFields(ctx, f.Name, f.Data, fields))
		} else {
			results = append(results, o.Extract(ctx, f.Name, f.Data, ""))
		}
	}
	return results
}

func (o *OCR) extract(ctx context.Context, filename string, data []byte, prompt string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !config.AllowedExtension(o.allowed, ext) {
		return "", apperr.Validation("unsupported image format %q", ext)
	}
	jpg, err := NormalizeImage(data, o.maxDim)
	if err != nil {
		return "", err
	}
	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpg)
	return o.complete(ctx, []openai.ChatCompletionMessage{{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: uri}},
		},
	}})
}
