// Package extract reads the text layer of uploaded clinical documents.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/hyperjump/medscribe/internal/apperr"
)

// Extensions lists the document formats ExtractBytes understands.
var Extensions = []string{".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".txt", ".md"}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension
// (with leading dot, e.g. ".pdf"). The result is NFKC-normalised with LF line
// endings so ligatures and full-width characters from PDFs read as plain text.
// An unsupported extension is a validation error.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(ext) {
	case ".pdf":
		text, err = extractPDF(content)
	case ".docx":
		text, err = extractDOCX(content)
	case ".odt", ".rtf":
		text, err = extractCat(content)
	case ".xlsx":
		text, err = extractExcel(content)
	case ".txt", ".md":
		text, err = extractPlain(content)
	default:
		return "", apperr.Validation("unsupported document format %q", ext)
	}
	if err != nil {
		return "", apperr.New(apperr.KindEncoding, "could not read document", err)
	}
	return normalize(text), nil
}

// HasTextLayer reports whether extracted text carries any words.
func HasTextLayer(text string) bool {
	return strings.TrimSpace(text) != ""
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(norm.NFKC.String(s))
}
