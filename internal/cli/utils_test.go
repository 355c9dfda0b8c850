package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/medscribe/internal/apperr"
	"github.com/hyperjump/medscribe/internal/archive"
	"github.com/hyperjump/medscribe/internal/ingest"
	"github.com/hyperjump/medscribe/internal/models"
	"github.com/hyperjump/medscribe/internal/services"
)

func sampleOutcomes() []ingest.Outcome {
	part := 2
	return []ingest.Outcome{
		{Filename: "consult.mp3", ChunkIndex: &part, SourceID: 1, Status: services.StatusSuccess, WordCount: 3},
		{Filename: "notes.exe", Status: services.StatusFailed, Kind: apperr.KindValidation, Error: "unsupported audio type \".exe\""},
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{" JSON ", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteIngestReport_text(t *testing.T) {
	sources := []models.Source{{ID: 1, Type: models.SourceAudio, Filename: "consult_part2.mp3", EditedText: "patient feels dizzy"}}
	var buf bytes.Buffer
	if err := WriteIngestReport(&buf, NewIngestReport(sampleOutcomes(), sources), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{
		"Processed 2 file(s): 1 succeeded, 1 failed",
		"OK      consult.mp3 [part 2] -> source 1 (3 words)",
		"FAILED  notes.exe",
		"(validation)",
		"#1 consult_part2.mp3 (AUDIO)",
		"patient feels dizzy",
	} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteIngestReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteIngestReport(&buf, NewIngestReport(sampleOutcomes(), nil), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Outcomes  []ingest.Outcome `json:"outcomes"`
		Sources   []models.Source  `json:"sources"`
		Succeeded int              `json:"succeeded"`
		Failed    int              `json:"failed"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Succeeded != 1 || decoded.Failed != 1 || len(decoded.Outcomes) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Sources == nil || !strings.Contains(buf.String(), `"sources": []`) {
		t.Errorf("sources should encode as an empty list:\n%s", buf.String())
	}
}

func TestWriteSearchResult(t *testing.T) {
	res := &archive.SearchResult{
		Query: "pneumonai",
		Hits: []models.ArchiveHit{{
			Score: 1.25,
			Report: &models.ArchivedReport{
				ID:        "r-1",
				Title:     "Community acquired pneumonia",
				Report:    "DIAGNOSIS: community acquired pneumonia",
				CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
			},
		}},
		Suggestion: "pneumonia",
	}
	var buf bytes.Buffer
	if err := WriteSearchResult(&buf, res, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 1 archived report(s)", "Did you mean: pneumonia", "Rank: 1 | Score: 1.2500", "ID: r-1", "Archived: 2026-03-01 08:00"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}

	buf.Reset()
	if err := WriteSearchResult(&buf, res, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded archive.SearchResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Suggestion != "pneumonia" || len(decoded.Hits) != 1 || decoded.Hits[0].Report.ID != "r-1" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteReports(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReports(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No archived reports.") {
		t.Errorf("empty list output = %q", buf.String())
	}
	buf.Reset()
	if err := WriteReports(&buf, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON list = %q", buf.String())
	}
	buf.Reset()
	reports := []*models.ArchivedReport{{ID: "r-2", Title: "Migraine", CreatedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)}}
	_ = WriteReports(&buf, reports, OutputText)
	if buf.String() != "2026-01-02 03:04  r-2  Migraine\n" {
		t.Errorf("list output = %q", buf.String())
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"empty", "", 3, ""},
		{"few words", "one two", 3, "one two"},
		{"exact", "one two three", 3, "one two three"},
		{"more", "one two three four", 3, "one two three..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateWords(tt.s, tt.maxWords); got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}
