package processor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
)

const docxBody = "word/document.xml"

// maxDocumentXML caps the decompressed size of word/document.xml
const maxDocumentXML = 64 << 20

// DOCXProcessor reads paragraph text from word/document.xml
type DOCXProcessor struct{}

func NewDOCXProcessor() *DOCXProcessor {
	return &DOCXProcessor{}
}

func (p *DOCXProcessor) Name() string {
	return "docx"
}

func (p *DOCXProcessor) CanProcess(format domain.Format) bool {
	return format == domain.FormatDOCX
}

// Process emits one line per w:p paragraph. w:tab becomes a tab and
// w:br / w:cr start a new line within the paragraph.
func (p *DOCXProcessor) Process(ctx context.Context, data []byte, _ domain.Format) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docx: open archive: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("docx: %s not found", docxBody)
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("docx: open %s: %w", docxBody, err)
	}
	defer rc.Close()

	return paragraphs(ctx, io.LimitReader(rc, maxDocumentXML))
}

func paragraphs(ctx context.Context, r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var out strings.Builder
	var inText bool
	// w:tab inside w:tabs is a tab stop definition, not content
	var tabStops int

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("docx: parse: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tabs":
				tabStops++
			case "tab":
				if tabStops == 0 {
					out.WriteByte('\t')
				}
			case "br", "cr":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "tabs":
				tabStops--
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}

	return out.String(), nil
}
