package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/medscribe/internal/extract"
	"github.com/hyperjump/medscribe/internal/models"
)

const sampleReport = `MEDICAL DIAGNOSTIC REPORT
Patient Name: J. Doe      Age: 54

ASSESSMENT:
- BP 150/95 & rising <monitor>`

func readPart(t *testing.T, docx []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(docx), int64(len(docx)))
	if err != nil {
		t.Fatalf("not a zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		return string(b)
	}
	t.Fatalf("part %s missing", name)
	return ""
}

func TestReportText(t *testing.T) {
	if got := string(ReportText("line")); got != "line\n" {
		t.Errorf("ReportText = %q", got)
	}
	if got := string(ReportText("line\n")); got != "line\n" {
		t.Errorf("trailing newline doubled: %q", got)
	}
	if got := SourcesText(""); len(got) != 0 {
		t.Errorf("empty dump = %q", got)
	}
}

func TestReportDocx_layout(t *testing.T) {
	docx, err := ReportDocx(sampleReport, "")
	if err != nil {
		t.Fatal(err)
	}
	doc := readPart(t, docx, "word/document.xml")

	for _, want := range []string{
		`w:top="720"`, `w:bottom="720"`, `w:left="1080"`, `w:right="1080"`,
		`w:ascii="Courier New"`, `<w:sz w:val="20"/>`,
		`BP 150/95 &amp; rising &lt;monitor&gt;`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document.xml missing %s", want)
		}
	}
	if got := strings.Count(doc, "<w:p>"); got != 5 {
		t.Errorf("paragraphs = %d, want one per report line", got)
	}
	if strings.Contains(doc, TranscriptHeading) || strings.Contains(doc, `w:type="page"`) {
		t.Error("no transcript section expected")
	}
}

func TestReportDocx_roundTrip(t *testing.T) {
	docx, err := ReportDocx(sampleReport, "Doctor: How long?\nPatient: Two weeks.")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(readPart(t, docx, "word/document.xml"), `<w:br w:type="page"/>`) {
		t.Error("transcript should start on a new page")
	}

	text, err := extract.NewExtractor().ExtractBytes(docx, ".docx")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	report, transcript, ok := strings.Cut(text, TranscriptHeading)
	if !ok {
		t.Fatalf("heading missing from %q", text)
	}
	if strings.TrimSpace(report) != sampleReport {
		t.Errorf("report section = %q", report)
	}
	if strings.TrimSpace(transcript) != "Doctor: How long?\nPatient: Two weeks." {
		t.Errorf("transcript section = %q", transcript)
	}
}

func TestReportDocx_controlCharacters(t *testing.T) {
	docx, err := ReportDocx("DIAGNOSIS:\n1. Migraine\fpage two\x0b\nNa\t139\x00", "Patient:\tfine\x1b")
	if err != nil {
		t.Fatal(err)
	}
	doc := readPart(t, docx, "word/document.xml")

	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("document.xml is not well-formed: %v", err)
		}
	}
	if strings.Count(doc, "<w:tab/>") != 2 {
		t.Errorf("tabs should be written as <w:tab/>: %s", doc)
	}

	text, err := extract.NewExtractor().ExtractBytes(docx, ".docx")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"1. Migrainepage two\n", "Na\t139\n", "Patient:\tfine"} {
		if !strings.Contains(text, want) {
			t.Errorf("extracted %q, missing %q", text, want)
		}
	}
}

func TestTranscript(t *testing.T) {
	sources := []models.Source{
		{Type: models.SourceAudio, EditedText: "part one"},
		{Type: models.SourceOCR, EditedText: "lab values"},
		{Type: models.SourceManual, EditedText: "note"},
		{Type: models.SourceAudio, EditedText: "part two"},
	}
	if got := Transcript(sources); got != "part one\n\npart two" {
		t.Errorf("Transcript() = %q", got)
	}
	if got := Transcript(nil); got != "" {
		t.Errorf("Transcript(nil) = %q", got)
	}
}

func TestSourcesWorkbook(t *testing.T) {
	created := time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC)
	confirmed := created.Add(time.Minute)
	sources := []models.Source{
		{ID: 1, Type: models.SourceAudio, Filename: "visit.mp3", Status: models.StatusConfirmed,
			EditedText: "chest pain", WordCount: 2, CreatedAt: created, ConfirmedAt: &confirmed},
		{ID: 3, Type: models.SourceOCR, Filename: "cbc.png", Status: models.StatusPending,
			EditedText: "WBC 7.1", WordCount: 2, CreatedAt: created},
	}
	data, err := SourcesWorkbook(sources)
	if err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(sourcesSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header plus 2", len(rows))
	}
	if strings.Join(rows[0], ",") != "ID,Type,Filename,Status,Words,Created,Confirmed,Text" {
		t.Errorf("header = %v", rows[0])
	}
	want := []string{"1", "audio", "visit.mp3", "confirmed", "2", "2026-01-05T14:30:00Z", "2026-01-05T14:31:00Z", "chest pain"}
	if strings.Join(rows[1], "|") != strings.Join(want, "|") {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[2][0] != "3" || rows[2][6] != "" || rows[2][7] != "WBC 7.1" {
		t.Errorf("row 2 = %v", rows[2])
	}

	text, err := extract.NewExtractor().ExtractBytes(data, ".xlsx")
	if err != nil || !strings.Contains(text, "cbc.png") {
		t.Errorf("workbook should read back through the extractor: %v", err)
	}
}

func TestFilenameAndContentType(t *testing.T) {
	at := time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC)
	tests := []struct {
		format, name, ctype string
	}{
		{FormatReportText, "medical_report_20260105_1430.txt", ContentTypeText},
		{FormatReportDocx, "medical_report_20260105_1430.docx", ContentTypeDocx},
		{FormatSourcesText, "clinical_sources_20260105_1430.txt", ContentTypeText},
		{FormatSourcesXLSX, "clinical_sources_20260105_1430.xlsx", ContentTypeWorkbook},
	}
	for _, tt := range tests {
		if got := Filename(tt.format, at); got != tt.name {
			t.Errorf("Filename(%s) = %s", tt.format, got)
		}
		if got := ContentType(tt.format); got != tt.ctype {
			t.Errorf("ContentType(%s) = %s", tt.format, got)
		}
	}
}
