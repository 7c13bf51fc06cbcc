package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
	"github.com/gen2brain/go-fitz"
)

// FitzProcessor extracts text through MuPDF. It copes with PDFs the pure Go
// reader rejects, such as compressed object streams and CID fonts.
type FitzProcessor struct{}

func NewFitzProcessor() *FitzProcessor {
	return &FitzProcessor{}
}

func (p *FitzProcessor) Name() string {
	return "fitz"
}

func (p *FitzProcessor) CanProcess(format domain.Format) bool {
	return format == domain.FormatPDF
}

func (p *FitzProcessor) Process(ctx context.Context, data []byte, _ domain.Format) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("fitz: open: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		content, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("fitz: page %d: %w", i+1, err)
		}
		if strings.TrimSpace(content) == "" {
			continue
		}

		b.WriteString(content)
		if !strings.HasSuffix(content, "\n") {
			b.WriteString("\n")
		}
	}

	return b.String(), nil
}
