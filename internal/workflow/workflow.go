// Package workflow gates diagnosis generation on source confirmation and tracks the
// single source under interactive review.
package workflow

import (
	"github.com/hyperjump/medscribe/internal/apperr"
	"github.com/hyperjump/medscribe/internal/models"
	"github.com/hyperjump/medscribe/internal/registry"
)

// Review holds the "currently reviewing" pointer for one registry.
type Review struct {
	reg     *registry.Registry
	current int // 0 when nothing is under review
}

// NewReview returns a review workflow over reg.
func NewReview(reg *registry.Registry) *Review {
	return &Review{reg: reg}
}

// Open puts the source with the given id under review, replacing any previous one.
func (w *Review) Open(id int) error {
	if _, ok := w.reg.Get(id); !ok {
		return apperr.NotFound("source %d not found", id)
	}
	w.current = id
	return nil
}

// Close clears the review pointer.
func (w *Review) Close() {
	w.current = 0
}

// CurrentID returns the id under review, or 0.
func (w *Review) CurrentID() int {
	if _, ok := w.Current(); !ok {
		return 0
	}
	return w.current
}

// Current returns the source under review. A pointer to a source that has since
// been discarded is cleared.
func (w *Review) Current() (models.Source, bool) {
	if w.current == 0 {
		return models.Source{}, false
	}
	src, ok := w.reg.Get(w.current)
	if !ok {
		w.current = 0
	}
	return src, ok
}

// Accept applies text (when non-nil and different from the working copy), confirms
// the source and closes the review.
func (w *Review) Accept(text *string) (models.Source, error) {
	src, ok := w.Current()
	if !ok {
		return models.Source{}, apperr.Conflict("no source under review")
	}
	if text != nil && *text != src.EditedText {
		w.reg.UpdateText(src.ID, *text)
	}
	w.reg.Confirm(src.ID)
	w.Close()
	src, _ = w.reg.Get(src.ID)
	return src, nil
}

// Reject discards the source under review and closes the review. It returns the
// discarded source's id.
func (w *Review) Reject() (int, error) {
	src, ok := w.Current()
	if !ok {
		return 0, apperr.Conflict("no source under review")
	}
	w.reg.Discard(src.ID)
	w.Close()
	return src.ID, nil
}

// CanGenerate reports whether diagnosis generation is allowed.
func (w *Review) CanGenerate() bool {
	return w.reg.AllConfirmed()
}

// RequireAllConfirmed returns a conflict error unless every source is confirmed.
func (w *Review) RequireAllConfirmed() error {
	if w.reg.Len() == 0 {
		return apperr.Conflict("no sources to generate from")
	}
	if !w.reg.AllConfirmed() {
		return apperr.Conflict("%d source(s) still pending confirmation", len(w.reg.ListPending()))
	}
	return nil
}
