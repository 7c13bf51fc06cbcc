package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// SampleCV is a small CV in the layout most applicants use
const SampleCV = `Jane Doe
Berlin, Germany

Education
MSc Computer Science, TU Berlin
BSc Mathematics, Uni Potsdam

Technical Skills
Go, PostgreSQL, RabbitMQ

Work Experience
Acme GmbH - Backend Engineer
Globex - Intern

Contact
jane.doe@example.com
+49 30 1234 5678`

// SampleCVLines returns SampleCV split into lines
func SampleCVLines() []string {
	return strings.Split(SampleCV, "\n")
}

// BuildPDF renders lines as a single-page PDF using a standard Type1 font,
// advancing with T*. Offsets in the cross-reference table are computed, so
// the output is a well-formed file both ledongthuc/pdf and MuPDF can read.
func BuildPDF(lines []string) []byte {
	var content strings.Builder
	content.WriteString("BT\n/F1 11 Tf\n14 TL\n72 760 Td\n")
	for i, line := range lines {
		if i > 0 {
			content.WriteString("T*\n")
		}
		fmt.Fprintf(&content, "(%s) Tj\n", escapePDFString(line))
	}
	content.WriteString("ET\n")
	return buildPDF(content.String())
}

// BuildPositionedPDF renders lines the way word processors and LaTeX do:
// every line is placed with a relative Td move and no T* or quote operator.
// A line containing a tab is drawn as two runs on the same baseline, the
// second shifted right.
func BuildPositionedPDF(lines []string) []byte {
	var content strings.Builder
	content.WriteString("BT\n/F1 11 Tf\n72 760 Td\n")
	for i, line := range lines {
		if i > 0 {
			content.WriteString("0 -14 Td\n")
		}
		left, right, split := strings.Cut(line, "\t")
		fmt.Fprintf(&content, "(%s) Tj\n", escapePDFString(left))
		if split {
			fmt.Fprintf(&content, "200 0 Td\n(%s) Tj\n-200 0 Td\n", escapePDFString(right))
		}
	}
	content.WriteString("ET\n")
	return buildPDF(content.String())
}

func buildPDF(stream string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// BuildDOCX packages paragraphs as a minimal word document, one w:p per entry.
// A tab character in a paragraph becomes a w:tab element.
func BuildDOCX(paragraphs []string) []byte {
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:pPr><w:tabs><w:tab w:val=\"left\" w:pos=\"720\"/></w:tabs></w:pPr><w:r>")
		for i, part := range strings.Split(p, "\t") {
			if i > 0 {
				body.WriteString("<w:tab/>")
			}
			body.WriteString(`<w:t xml:space="preserve">`)
			xml.EscapeText(&body, []byte(part))
			body.WriteString("</w:t>")
		}
		body.WriteString("</w:r></w:p>")
	}

	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() +
		`</w:body></w:document>`

	return BuildZip(map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`,
		"word/document.xml":   document,
	})
}

// BuildZip writes files into an in-memory zip archive
func BuildZip(files map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
