// Package archive keeps finalised reports in SQLite and makes them searchable
// through a Bleve index.
package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/medscribe/internal/apperr"
	"github.com/hyperjump/medscribe/internal/config"
	"github.com/hyperjump/medscribe/internal/keyword"
	"github.com/hyperjump/medscribe/internal/models"
	"github.com/hyperjump/medscribe/internal/storage"
	"github.com/hyperjump/medscribe/pkg/utils"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	titleBoost       = 2.0
)

// Entry is a report to archive.
type Entry struct {
	SessionID string
	Title     string
	Report    string
	Initial   string
	Metadata  map[string]interface{}
}

// SearchResult holds archive hits and, when nothing matched, a corrected query.
type SearchResult struct {
	Query      string              `json:"query"`
	Hits       []models.ArchiveHit `json:"hits"`
	Suggestion string              `json:"suggestion,omitempty"`
}

// Archive stores reports and indexes them for search.
type Archive struct {
	store   storage.Storage
	index   keyword.ReportIndex
	speller *keyword.Speller
	paths   []string
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Archive) { a.logger = l }
}

// WithClock overrides time.Now for archived timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) { a.now = now }
}

// New returns an Archive over an opened store and index. Spelling suggestions
// are offered when the index exposes its terms.
func New(store storage.Storage, index keyword.ReportIndex, opts ...Option) *Archive {
	a := &Archive{store: store, index: index, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = utils.OrNop(a.logger)
	if dict, ok := index.(keyword.TermDictionary); ok {
		a.speller = keyword.NewSpeller(dict, 2)
	}
	return a
}

// Open opens the SQLite store and Bleve index named in cfg.
func Open(cfg config.ArchiveConfig, opts ...Option) (*Archive, error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	index, err := keyword.NewBleveIndex(cfg.IndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open archive index: %w", err)
	}
	a := New(store, index, opts...)
	a.paths = []string{cfg.DatabasePath, cfg.IndexPath}
	a.checkSync()
	return a, nil
}

// Save stores and indexes a report. A report that cannot be indexed is removed
// from the store again.
func (a *Archive) Save(ctx context.Context, e Entry) (*models.ArchivedReport, error) {
	if strings.TrimSpace(e.Report) == "" {
		return nil, apperr.Conflict("no report to archive")
	}
	title := strings.TrimSpace(e.Title)
	if title == "" {
		title = defaultTitle(e.Report)
	}
	r := &models.ArchivedReport{
		ID:        uuid.NewString(),
		SessionID: e.SessionID,
		Title:     title,
		Report:    e.Report,
		Initial:   e.Initial,
		Metadata:  e.Metadata,
		CreatedAt: a.now().UTC(),
	}
	if err := a.store.SaveReport(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to store report: %w", err)
	}
	if err := a.index.Index(ctx, r); err != nil {
		_ = a.store.DeleteReport(ctx, r.ID)
		return nil, fmt.Errorf("failed to index report: %w", err)
	}
	a.logger.Info("report archived",
		zap.String("report_id", r.ID),
		zap.String("session_id", r.SessionID),
		zap.String("title", r.Title))
	return r, nil
}

// Get returns an archived report.
func (a *Archive) Get(ctx context.Context, id string) (*models.ArchivedReport, error) {
	return a.store.GetReport(ctx, id)
}

// List returns archived reports newest first. A non-positive limit uses the default.
func (a *Archive) List(ctx context.Context, offset, limit int) ([]*models.ArchivedReport, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return a.store.ListReports(ctx, offset, limit)
}

// Delete removes a report from the store and the index.
func (a *Archive) Delete(ctx context.Context, id string) error {
	if err := a.store.DeleteReport(ctx, id); err != nil {
		return err
	}
	if err := a.index.Delete(ctx, id); err != nil {
		a.logger.Warn("report left in index", zap.String("report_id", id), zap.Error(err))
	}
	a.logger.Info("report deleted", zap.String("report_id", id))
	return nil
}

// Search finds reports matching query, tolerating one-letter typos when fuzzy
// is set. Index hits whose report is gone from the store are skipped.
func (a *Archive) Search(ctx context.Context, query string, limit int, fuzzy bool) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("search query is empty")
	}
	if limit <= 0 {
		limit = 10
	}
	results, err := a.index.Search(ctx, query, limit, &keyword.SearchOptions{TitleBoost: titleBoost, Fuzzy: fuzzy})
	if err != nil {
		return nil, err
	}

	out := &SearchResult{Query: query, Hits: make([]models.ArchiveHit, 0, len(results))}
	for _, res := range results {
		r, err := a.store.GetReport(ctx, res.ID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				continue
			}
			return nil, err
		}
		out.Hits = append(out.Hits, models.ArchiveHit{Report: r, Score: res.Score, Snippet: snippet(r.Report, query, snippetRunes)})
	}
	if len(out.Hits) == 0 && a.speller != nil {
		if s, err := a.speller.Suggest(query); err == nil {
			out.Suggestion = s
		} else {
			a.logger.Debug("spelling suggestion failed", zap.Error(err))
		}
	}
	return out, nil
}

// checkSync warns when the index and the store disagree on the report count,
// which happens after a crash between the two writes.
func (a *Archive) checkSync() {
	stored, err := a.store.CountReports(context.Background())
	if err != nil {
		return
	}
	indexed, err := a.index.DocCount()
	if err != nil {
		return
	}
	if uint64(stored) != indexed {
		a.logger.Warn("archive index out of sync with database",
			zap.Int64("stored", stored),
			zap.Uint64("indexed", indexed))
	}
}

// Count returns the number of archived reports.
func (a *Archive) Count(ctx context.Context) (int64, error) {
	return a.store.CountReports(ctx)
}

// DiskUsage returns the bytes used by the database and index on disk.
func (a *Archive) DiskUsage() (int64, error) {
	return storage.DiskUsageBytes(a.paths...)
}

// Close closes the index and the store.
func (a *Archive) Close() error {
	indexErr := a.index.Close()
	storeErr := a.store.Close()
	if indexErr != nil {
		return indexErr
	}
	return storeErr
}

// defaultTitle uses the first non-empty report line.
func defaultTitle(report string) string {
	for _, line := range strings.Split(report, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return utils.Truncate(line, 80)
		}
	}
	return "Untitled report"
}
