package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/medscribe/internal/models"
)

const (
	fieldTitle   = "title"
	fieldReport  = "report"
	fieldSession = "session_id"
)

// indexedReport is the document stored in Bleve.
type indexedReport struct {
	Title     string `json:"title"`
	Report    string `json:"report"`
	SessionID string `json:"session_id"`
}

// BleveIndex implements ReportIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, indexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemIndex returns an in-memory index, used when no index path is configured.
func NewMemIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func indexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	// standard analyzer: lowercase, no stemming, so drug names match as typed
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	doc.AddFieldMappingsAt(fieldTitle, text)
	doc.AddFieldMappingsAt(fieldReport, text)
	doc.AddFieldMappingsAt(fieldSession, bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("report", doc)
	im.DefaultType = "report"
	im.DefaultMapping = doc
	return im
}

// Index adds or replaces a report.
func (b *BleveIndex) Index(_ context.Context, r *models.ArchivedReport) error {
	return b.index.Index(r.ID, indexedReport{
		Title:     strings.ReplaceAll(r.Title, "_", " "),
		Report:    r.Report,
		SessionID: r.SessionID,
	})
}

// Search returns up to limit report ids ranked by relevance. With a title boost
// the title and body are queried separately and the scores added.
func (b *BleveIndex) Search(_ context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	var o SearchOptions
	if opts != nil {
		o = *opts
	}
	if o.Fuzzy && o.Fuzziness <= 0 {
		o.Fuzziness = 1
	}

	if o.TitleBoost <= 1 {
		return b.run(b.buildQuery(query, "", o), limit, 1)
	}

	size := limit * 2
	if size < 50 {
		size = 50
	}
	titleHits, err := b.run(b.buildQuery(query, fieldTitle, o), size, o.TitleBoost)
	if err != nil {
		return nil, err
	}
	bodyHits, err := b.run(b.buildQuery(query, fieldReport, o), size, 1)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]float64, len(titleHits)+len(bodyHits))
	for _, h := range append(titleHits, bodyHits...) {
		scores[h.ID] += h.Score
	}
	merged := make([]*Result, 0, len(scores))
	for id, s := range scores {
		merged = append(merged, &Result{ID: id, Score: s})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (b *BleveIndex) run(q blevequery.Query, size int, boost float64) ([]*Result, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = size
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, len(res.Hits))
	for i, hit := range res.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score * boost}
	}
	return out, nil
}

// buildQuery returns a match query, or a disjunction of fuzzy term queries.
// An empty field searches all fields.
func (b *BleveIndex) buildQuery(query, field string, o SearchOptions) blevequery.Query {
	terms := tokenize(query)
	if !o.Fuzzy || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(o.Fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a report from the index.
func (b *BleveIndex) Delete(_ context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the number of indexed reports.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// Terms returns every indexed title and body term with its document frequency.
func (b *BleveIndex) Terms() (map[string]int, error) {
	terms := make(map[string]int)
	for _, field := range []string{fieldTitle, fieldReport} {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("read %s terms: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil {
				_ = dict.Close()
				return nil, err
			}
			if entry == nil {
				break
			}
			if int(entry.Count) > terms[entry.Term] {
				terms[entry.Term] = int(entry.Count)
			}
		}
		_ = dict.Close()
	}
	return terms, nil
}

// tokenize splits query into lowercase terms.
func tokenize(query string) []string {
	return strings.Fields(strings.ToLower(query))
}
