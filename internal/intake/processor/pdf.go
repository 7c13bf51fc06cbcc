package processor

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
	"github.com/ledongthuc/pdf"
)

// PDFProcessor extracts text with the pure Go ledongthuc/pdf reader
type PDFProcessor struct{}

func NewPDFProcessor() *PDFProcessor {
	return &PDFProcessor{}
}

func (p *PDFProcessor) Name() string {
	return "pdf"
}

func (p *PDFProcessor) CanProcess(format domain.Format) bool {
	return format == domain.FormatPDF
}

// Process rebuilds the text lines of every page from glyph positions, top to
// bottom. Empty pages are skipped.
func (p *PDFProcessor) Process(ctx context.Context, data []byte, _ domain.Format) (text string, err error) {
	// the reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf: malformed document: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf: open: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		lines := pageLines(page.Content().Text)
		if strings.TrimSpace(strings.Join(lines, "")) == "" {
			continue
		}
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String(), nil
}

// pageLines groups glyphs sharing a baseline into lines. Content streams move
// between lines with Td, TD, Tm or T*, so line breaks come from the Y
// coordinate rather than from the operators.
func pageLines(glyphs []pdf.Text) []string {
	if len(glyphs) == 0 {
		return nil
	}

	// PDF space grows upwards; the stable sort keeps drawing order on a line
	sorted := make([]pdf.Text, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Y > sorted[b].Y })

	var rows [][]pdf.Text
	for _, g := range sorted {
		if n := len(rows); n > 0 && sameBaseline(rows[n-1][0], g) {
			rows[n-1] = append(rows[n-1], g)
			continue
		}
		rows = append(rows, []pdf.Text{g})
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row, func(a, b int) bool { return row[a].X < row[b].X })
		lines = append(lines, strings.TrimRight(joinRow(row), " "))
	}
	return lines
}

func sameBaseline(a, b pdf.Text) bool {
	tolerance := math.Max(a.FontSize, b.FontSize) / 2
	if tolerance < 1 {
		tolerance = 1
	}
	return math.Abs(a.Y-b.Y) < tolerance
}

// joinRow concatenates a line's glyphs, inserting a space where two text runs
// on the same line are separated by a visible gap.
func joinRow(row []pdf.Text) string {
	var b strings.Builder
	for i, g := range row {
		if i > 0 {
			prev := row[i-1]
			gap := g.X - (prev.X + prev.W)
			if gap > math.Max(g.FontSize, 1)*0.25 &&
				!strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(g.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
	}
	return b.String()
}
