// Package models defines core data structures for sources, reports, and chat.
package models

import (
	"strings"
	"time"
)

// SourceType identifies where a source's text came from.
type SourceType string

const (
	SourceAudio  SourceType = "audio"
	SourceOCR    SourceType = "ocr"
	SourceManual SourceType = "manual"
)

// SourceTypes lists every known source type in display order.
var SourceTypes = []SourceType{SourceOCR, SourceAudio, SourceManual}

// ParseSourceType validates and parses a source type string (case-insensitive).
func ParseSourceType(s string) (SourceType, bool) {
	switch t := SourceType(strings.ToLower(strings.TrimSpace(s))); t {
	case SourceAudio, SourceOCR, SourceManual:
		return t, true
	default:
		return "", false
	}
}

// SourceStatus is the review state of a source. Discarded sources are deleted,
// so there is no discarded status.
type SourceStatus string

const (
	StatusPending   SourceStatus = "pending"
	StatusConfirmed SourceStatus = "confirmed"
)

// ParseSourceStatus validates and parses a status string.
func ParseSourceStatus(s string) (SourceStatus, bool) {
	switch st := SourceStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed:
		return st, true
	default:
		return "", false
	}
}

// Source is one unit of extracted text tracked through review.
type Source struct {
	ID          int                    `json:"id"`
	Type        SourceType             `json:"type"`
	Filename    string                 `json:"filename"`
	RawText     string                 `json:"raw_text"`
	EditedText  string                 `json:"edited_text"`
	Status      SourceStatus           `json:"status"`
	CreatedAt   time.Time              `json:"created_at"`
	ConfirmedAt *time.Time             `json:"confirmed_at,omitempty"`
	WordCount   int                    `json:"word_count"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// Edited reports whether the working text differs from the extracted text.
func (s *Source) Edited() bool {
	return s.EditedText != s.RawText
}

// Summary aggregates registry counts. TotalWords and ByType cover confirmed sources only.
type Summary struct {
	Total      int                `json:"total_sources"`
	Confirmed  int                `json:"confirmed"`
	Pending    int                `json:"pending"`
	TotalWords int                `json:"total_words"`
	ByType     map[SourceType]int `json:"by_type"`
}
