// Package export renders generated news into downloadable formats.
//
// DOCX builds a minimal WordprocessingML package (the parts Word, LibreOffice
// and Google Docs require) holding the text as one plain paragraph. Newlines
// become line breaks and tabs become tab stops inside that paragraph.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// DOCXContentType is the MIME type of .docx files.
const DOCXContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DOCXFilename is the suggested download name.
const DOCXFilename = "ai_news.docx"

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const documentHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p>`

const documentTail = `</w:p><w:sectPr/></w:body></w:document>`

// modTime is stamped on every zip entry so identical text yields identical
// bytes.
var modTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DOCX returns a .docx document containing text as a single paragraph.
func DOCX(text string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", documentHead + paragraphRuns(text) + documentTail},
	}
	for _, p := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: modTime,
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// paragraphRuns converts text into the run content of one paragraph.
func paragraphRuns(text string) string {
	text = norm.NFC.String(strings.ReplaceAll(text, "\r\n", "\n"))

	var b strings.Builder
	b.WriteString("<w:r>")
	var seg strings.Builder
	flush := func() {
		if seg.Len() == 0 {
			return
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		_ = xml.EscapeText(&b, []byte(seg.String()))
		b.WriteString("</w:t>")
		seg.Reset()
	}
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r':
			flush()
			b.WriteString("<w:br/>")
		case r == '\t':
			flush()
			b.WriteString("<w:tab/>")
		case validXMLChar(r):
			seg.WriteRune(r)
		}
	}
	flush()
	b.WriteString("</w:r>")
	return b.String()
}

// validXMLChar reports whether r may appear in an XML 1.0 document.
func validXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}
