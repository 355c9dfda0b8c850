// Package export renders reports and sources into downloadable files.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/medscribe/internal/models"
)

// Formats served by the download endpoints.
const (
	FormatReportText    = "report.txt"
	FormatReportDocx    = "report.docx"
	FormatSourcesText   = "sources.txt"
	FormatSourcesXLSX   = "sources.xlsx"
	ContentTypeText     = "text/plain; charset=utf-8"
	ContentTypeDocx     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeWorkbook = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Formats lists every supported download.
var Formats = []string{FormatReportText, FormatReportDocx, FormatSourcesText, FormatSourcesXLSX}

// Transcript joins the audio sources' text in order, separated by blank lines.
// Callers pass confirmed sources.
func Transcript(sources []models.Source) string {
	var parts []string
	for _, src := range sources {
		if src.Type == models.SourceAudio {
			parts = append(parts, src.EditedText)
		}
	}
	return strings.Join(parts, "\n\n")
}

// ReportText returns the report as UTF-8 text ending in a newline.
func ReportText(report string) []byte {
	return []byte(withNewline(report))
}

// SourcesText returns the combined source dump as UTF-8 text.
func SourcesText(combined string) []byte {
	return []byte(withNewline(combined))
}

// Filename returns the attachment name for a download generated at t,
// e.g. medical_report_20260105_1430.docx.
func Filename(format string, t time.Time) string {
	name, ext, _ := strings.Cut(format, ".")
	prefix := "medical_report"
	if name == "sources" {
		prefix = "clinical_sources"
	}
	return fmt.Sprintf("%s_%s.%s", prefix, t.Format("20060102_1504"), ext)
}

// ContentType returns the MIME type for a download format.
func ContentType(format string) string {
	switch format {
	case FormatReportDocx:
		return ContentTypeDocx
	case FormatSourcesXLSX:
		return ContentTypeWorkbook
	default:
		return ContentTypeText
	}
}

func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
