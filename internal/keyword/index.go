// Package keyword provides full-text search over archived reports.
package keyword

import (
	"context"

	"github.com/hyperjump/medscribe/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score of title matches. Values <= 1 search title
	// and report body as one field.
	TitleBoost float64
	// Fuzzy enables typo tolerance within Fuzziness edits (default 1).
	Fuzzy     bool
	Fuzziness int
}

// ReportIndex defines keyword search operations.
type ReportIndex interface {
	Index(ctx context.Context, r *models.ArchivedReport) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	ID    string
	Score float64
}

// TermDictionary lists indexed terms for spelling suggestions.
type TermDictionary interface {
	Terms() (map[string]int, error)
}
