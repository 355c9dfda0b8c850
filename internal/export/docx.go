package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

// Page geometry in twentieths of a point.
const (
	marginTopBottom = 720  // 0.5 in
	marginLeftRight = 1080 // 0.75 in
	pageWidth       = 12240
	pageHeight      = 15840
	reportFont      = "Courier New"
	reportHalfPts   = 20 // 10 pt
)

// TranscriptHeading titles the optional transcript section.
const TranscriptHeading = "CONSULTATION TRANSCRIPT"

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:pPr><w:spacing w:after="0"/></w:pPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:pPr><w:keepNext/><w:spacing w:before="240" w:after="120"/><w:outlineLvl w:val="0"/></w:pPr><w:rPr><w:b/><w:sz w:val="32"/></w:rPr></w:style>
</w:styles>`

// ReportDocx renders the report as a Word document, one monospaced paragraph per
// line. A non-empty transcript is appended on a new page under its own heading.
func ReportDocx(report, transcript string) ([]byte, error) {
	var body strings.Builder
	for _, line := range splitLines(report) {
		body.WriteString(`<w:p>`)
		writeRun(&body, line, true)
		body.WriteString(`</w:p>`)
	}
	if strings.TrimSpace(transcript) != "" {
		body.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		body.WriteString(`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr>`)
		writeRun(&body, TranscriptHeading, false)
		body.WriteString(`</w:p>`)
		for _, line := range splitLines(transcript) {
			body.WriteString(`<w:p>`)
			writeRun(&body, line, false)
			body.WriteString(`</w:p>`)
		}
	}

	doc := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>%s<w:sectPr><w:pgSz w:w="%d" w:h="%d"/><w:pgMar w:top="%d" w:right="%d" w:bottom="%d" w:left="%d" w:header="720" w:footer="720" w:gutter="0"/></w:sectPr></w:body></w:document>`,
		body.String(), pageWidth, pageHeight,
		marginTopBottom, marginLeftRight, marginTopBottom, marginLeftRight)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct{ name, content string }{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/styles.xml", stylesXML},
		{"word/document.xml", doc},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRun(b *strings.Builder, text string, mono bool) {
	b.WriteString(`<w:r>`)
	if mono {
		fmt.Fprintf(b, `<w:rPr><w:rFonts w:ascii="%[1]s" w:hAnsi="%[1]s" w:cs="%[1]s"/><w:sz w:val="%[2]d"/><w:szCs w:val="%[2]d"/></w:rPr>`,
			reportFont, reportHalfPts)
	}
	for i, seg := range strings.Split(xmlSafe(text), "\t") {
		if i > 0 {
			b.WriteString(`<w:tab/>`)
		}
		if seg == "" {
			continue
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		b.WriteString(xmlText.Replace(seg))
		b.WriteString(`</w:t>`)
	}
	b.WriteString(`</w:r>`)
}

var xmlText = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// xmlSafe drops runes XML 1.0 does not allow in character data. Tabs are kept
// for writeRun to emit as <w:tab/>; line breaks never reach a run.
func xmlSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return r
		case r < 0x20, r == 0xFFFE, r == 0xFFFF:
			return -1
		}
		return r
	}, s)
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
