// Package registry tracks extracted-text sources through review to confirmation.
package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/medscribe/internal/models"
	"github.com/hyperjump/medscribe/pkg/utils"
)

// delimiterWidth is the width of the rule lines around each source in CombinedText.
const delimiterWidth = 60

// Registry is an ordered, in-memory list of sources for one session.
// It is not safe for concurrent use; the owning session serialises access.
type Registry struct {
	sources []*models.Source
	nextID  int
	now     func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the time source used for created/confirmed timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New returns an empty registry. IDs start at 1 so that 0 can mean "no source".
func New(opts ...Option) *Registry {
	r := &Registry{nextID: 1, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add appends a pending source and returns its id. When rawText is blank nothing is
// added and ok is false; callers are expected to reject empty extractions upstream.
func (r *Registry) Add(typ models.SourceType, filename, rawText string, metadata map[string]interface{}) (id int, ok bool) {
	if strings.TrimSpace(rawText) == "" {
		return 0, false
	}
	meta := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	src := &models.Source{
		ID:         r.nextID,
		Type:       typ,
		Filename:   filename,
		RawText:    rawText,
		EditedText: rawText,
		Status:     models.StatusPending,
		CreatedAt:  r.now(),
		WordCount:  utils.WordCount(rawText),
		Metadata:   meta,
	}
	r.nextID++
	r.sources = append(r.sources, src)
	return src.ID, true
}

// Get returns a copy of the source with the given id.
func (r *Registry) Get(id int) (models.Source, bool) {
	if s := r.find(id); s != nil {
		return clone(s), true
	}
	return models.Source{}, false
}

// UpdateText replaces the edited text and recomputes the word count.
// Returns false if id is unknown. Status is unchanged.
func (r *Registry) UpdateText(id int, text string) bool {
	s := r.find(id)
	if s == nil {
		return false
	}
	s.EditedText = text
	s.WordCount = utils.WordCount(text)
	return true
}

// Confirm marks a pending source confirmed. Confirming an already confirmed source
// keeps its original timestamp. Returns false if id is unknown.
func (r *Registry) Confirm(id int) bool {
	s := r.find(id)
	if s == nil {
		return false
	}
	if s.Status != models.StatusConfirmed {
		now := r.now()
		s.Status = models.StatusConfirmed
		s.ConfirmedAt = &now
	}
	return true
}

// Discard removes the source permanently. Returns false if id is unknown.
func (r *Registry) Discard(id int) bool {
	for i, s := range r.sources {
		if s.ID == id {
			r.sources = append(r.sources[:i], r.sources[i+1:]...)
			return true
		}
	}
	return false
}

// BulkConfirm confirms every pending source with one shared timestamp and returns
// how many sources changed.
func (r *Registry) BulkConfirm() int {
	now := r.now()
	n := 0
	for _, s := range r.sources {
		if s.Status == models.StatusPending {
			ts := now
			s.Status = models.StatusConfirmed
			s.ConfirmedAt = &ts
			n++
		}
	}
	return n
}

// Clear removes every source. IDs are not reused afterwards.
func (r *Registry) Clear() {
	r.sources = nil
}

// Len returns the number of sources.
func (r *Registry) Len() int {
	return len(r.sources)
}

// ListAll returns copies of every source in insertion order.
func (r *Registry) ListAll() []models.Source {
	return r.filter(func(*models.Source) bool { return true })
}

// ListPending returns copies of pending sources in insertion order.
func (r *Registry) ListPending() []models.Source {
	return r.filter(func(s *models.Source) bool { return s.Status == models.StatusPending })
}

// ListConfirmed returns copies of confirmed sources in insertion order.
func (r *Registry) ListConfirmed() []models.Source {
	return r.filter(func(s *models.Source) bool { return s.Status == models.StatusConfirmed })
}

// AllConfirmed reports whether the registry is non-empty and every source is confirmed.
func (r *Registry) AllConfirmed() bool {
	if len(r.sources) == 0 {
		return false
	}
	for _, s := range r.sources {
		if s.Status != models.StatusConfirmed {
			return false
		}
	}
	return true
}

// CombinedText concatenates the edited text of confirmed sources in insertion order,
// each preceded by a header naming its file and type. Returns "" when nothing is confirmed.
func (r *Registry) CombinedText() string {
	rule := strings.Repeat("=", delimiterWidth)
	var parts []string
	for _, s := range r.sources {
		if s.Status != models.StatusConfirmed {
			continue
		}
		parts = append(parts,
			"\n"+rule,
			fmt.Sprintf("SOURCE: %s (%s)", s.Filename, strings.ToUpper(string(s.Type))),
			rule+"\n",
			s.EditedText,
			"\n",
		)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n")
}

// Summary returns aggregate counts. TotalWords and ByType cover confirmed sources only.
func (r *Registry) Summary() models.Summary {
	sum := models.Summary{
		Total:  len(r.sources),
		ByType: make(map[models.SourceType]int, len(models.SourceTypes)),
	}
	for _, t := range models.SourceTypes {
		sum.ByType[t] = 0
	}
	for _, s := range r.sources {
		switch s.Status {
		case models.StatusConfirmed:
			sum.Confirmed++
			sum.TotalWords += s.WordCount
			sum.ByType[s.Type]++
		case models.StatusPending:
			sum.Pending++
		}
	}
	return sum
}

func (r *Registry) find(id int) *models.Source {
	for _, s := range r.sources {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (r *Registry) filter(keep func(*models.Source) bool) []models.Source {
	out := make([]models.Source, 0, len(r.sources))
	for _, s := range r.sources {
		if keep(s) {
			out = append(out, clone(s))
		}
	}
	return out
}

func clone(s *models.Source) models.Source {
	c := *s
	if s.ConfirmedAt != nil {
		ts := *s.ConfirmedAt
		c.ConfirmedAt = &ts
	}
	c.Metadata = make(map[string]interface{}, len(s.Metadata))
	for k, v := range s.Metadata {
		c.Metadata[k] = v
	}
	return c
}
