// Package services wraps the hosted AI services used by medscribe: speech-to-text,
// vision OCR, diagnosis generation and chat refinement. Every adapter reports
// failures as a Result instead of returning an error.
package services

import (
	"github.com/hyperjump/medscribe/internal/apperr"
	"github.com/hyperjump/medscribe/pkg/utils"
)

// Status is the outcome of an adapter call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result is the normalized outcome of a transcription, OCR or diagnosis call.
type Result struct {
	Status    Status      `json:"status"`
	Filename  string      `json:"filename,omitempty"`
	Text      string      `json:"text,omitempty"`
	WordCount int         `json:"word_count"`
	SizeKB    float64     `json:"size_kb,omitempty"`
	Kind      apperr.Kind `json:"kind,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return apperr.New(r.Kind, r.Error, nil)
}

// ChatReply is the outcome of a chat call.
type ChatReply struct {
	Result
	// Replacement is set when the reply looks like a complete report.
	Replacement bool `json:"replacement"`
}

func succeeded(filename, text string, size int) Result {
	r := Result{
		Status:    StatusSuccess,
		Filename:  filename,
		Text:      text,
		WordCount: utils.WordCount(text),
	}
	if size > 0 {
		r.SizeKB = utils.SizeKB(int64(size))
	}
	return r
}

func failed(filename string, err error) Result {
	return Result{
		Status:   StatusFailed,
		Filename: filename,
		Kind:     apperr.KindOf(err),
		Error:    err.Error(),
	}
}
