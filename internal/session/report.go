package session

import "time"

// Report is a session's diagnosis report: the text first generated and the current
// text after manual edits or chat refinement.
type Report struct {
	initial     string
	current     string
	generatedAt time.Time
	updatedAt   time.Time
}

// Set stores a freshly generated report. Both initial and current take the new text.
func (r *Report) Set(text string, at time.Time) {
	r.initial = text
	r.current = text
	r.generatedAt = at
	r.updatedAt = at
}

// Replace overwrites the current text, keeping the initial snapshot.
func (r *Report) Replace(text string, at time.Time) {
	r.current = text
	r.updatedAt = at
}

// Current returns the current report text.
func (r *Report) Current() string { return r.current }

// Initial returns the report text as first generated.
func (r *Report) Initial() string { return r.initial }

// HasReport reports whether a report has been generated.
func (r *Report) HasReport() bool { return !r.generatedAt.IsZero() }

// Modified reports whether the current text differs from the initial snapshot.
func (r *Report) Modified() bool { return r.current != r.initial }

// GeneratedAt returns when the report was generated.
func (r *Report) GeneratedAt() time.Time { return r.generatedAt }

// UpdatedAt returns when the report last changed.
func (r *Report) UpdatedAt() time.Time { return r.updatedAt }
