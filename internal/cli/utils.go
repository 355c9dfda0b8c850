// Package cli provides output helpers for the medscribe command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/medscribe/internal/archive"
	"github.com/hyperjump/medscribe/internal/ingest"
	"github.com/hyperjump/medscribe/internal/models"
	"github.com/hyperjump/medscribe/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a --format value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (use text or json)", s)
}

// IngestReport is what the transcribe and ocr commands print.
type IngestReport struct {
	Outcomes  []ingest.Outcome `json:"outcomes"`
	Sources   []models.Source  `json:"sources"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// NewIngestReport pairs outcomes with the sources they produced.
func NewIngestReport(outcomes []ingest.Outcome, sources []models.Source) *IngestReport {
	ok, failed := ingest.Counts(outcomes)
	if sources == nil {
		sources = []models.Source{}
	}
	return &IngestReport{Outcomes: outcomes, Sources: sources, Succeeded: ok, Failed: failed}
}

// WriteIngestReport writes an ingestion report to w in the given format.
func WriteIngestReport(w io.Writer, report *IngestReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "\nProcessed %d file(s): %d succeeded, %d failed\n\n",
		len(report.Outcomes), report.Succeeded, report.Failed)
	for _, o := range report.Outcomes {
		name := o.Filename
		if o.ChunkIndex != nil {
			name = fmt.Sprintf("%s [part %d]", name, *o.ChunkIndex)
		}
		if o.Error != "" {
			fmt.Fprintf(w, "FAILED  %s: %s (%s)\n", name, o.Error, o.Kind)
			continue
		}
		fmt.Fprintf(w, "OK      %s -> source %d (%d words)\n", name, o.SourceID, o.WordCount)
	}
	for _, src := range report.Sources {
		fmt.Fprintf(w, "\n─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "#%d %s (%s)\n\n%s\n", src.ID, src.Filename, strings.ToUpper(string(src.Type)), src.EditedText)
	}
	return nil
}

// WriteSearchResult writes archive search hits to w in the given format.
func WriteSearchResult(w io.Writer, res *archive.SearchResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "\nFound %d archived report(s) for %q\n", len(res.Hits), res.Query)
	if res.Suggestion != "" {
		fmt.Fprintf(w, "Did you mean: %s\n", res.Suggestion)
	}
	fmt.Fprintln(w)
	for i, hit := range res.Hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, hit.Score)
		fmt.Fprintf(w, "ID: %s\n", hit.Report.ID)
		fmt.Fprintf(w, "Title: %s\n", hit.Report.Title)
		fmt.Fprintf(w, "Archived: %s\n", hit.Report.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(w, "\n%s\n\n", TruncateWords(hit.Report.Report, 40))
	}
	return nil
}

// WriteReports lists archived reports, newest first.
func WriteReports(w io.Writer, reports []*models.ArchivedReport, format OutputFormat) error {
	if format == OutputJSON {
		if reports == nil {
			reports = []*models.ArchivedReport{}
		}
		return writeJSON(w, reports)
	}
	if len(reports) == 0 {
		fmt.Fprintln(w, "No archived reports.")
		return nil
	}
	for _, r := range reports {
		fmt.Fprintf(w, "%s  %s  %s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.ID, utils.Truncate(r.Title, 60))
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
