package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
	"github.com/cvintake/cvintake-backend/pkg/logger"
)

var (
	// ErrNoProcessor is returned when no registered processor accepts the format
	ErrNoProcessor = errors.New("no processor for format")
	// ErrNoText is returned by processors that parsed the file but found no text
	ErrNoText = errors.New("document contains no extractable text")
)

// Processor converts an uploaded document to plain text.
// Implementations must not retain data after Process returns.
type Processor interface {
	// Name returns the processor name for logging
	Name() string

	// CanProcess returns true if this processor handles the given format
	CanProcess(format domain.Format) bool

	// Process returns the document text, lines separated by "\n"
	Process(ctx context.Context, data []byte, format domain.Format) (string, error)
}

// Registry holds all registered processors and dispatches to the right one
type Registry struct {
	processors []Processor
	log        *logger.Logger
}

// NewRegistry creates a registry. Processors are tried in the order given.
func NewRegistry(log *logger.Logger, processors ...Processor) *Registry {
	return &Registry{processors: processors, log: log.WithComponent("processor")}
}

// DefaultRegistry wires the PDF processors (pure Go first, MuPDF as fallback) and the DOCX processor
func DefaultRegistry(log *logger.Logger) *Registry {
	return NewRegistry(log, NewPDFProcessor(), NewFitzProcessor(), NewDOCXProcessor())
}

// FindProcessor returns the first processor that can handle the given format
func (r *Registry) FindProcessor(format domain.Format) Processor {
	for _, p := range r.processors {
		if p.CanProcess(format) {
			return p
		}
	}
	return nil
}

// FindProcessors returns all processors that can handle the given format, in registration order
func (r *Registry) FindProcessors(format domain.Format) []Processor {
	var result []Processor
	for _, p := range r.processors {
		if p.CanProcess(format) {
			result = append(result, p)
		}
	}
	return result
}

// Convert tries each matching processor in turn and returns the first
// non-blank text. When every processor fails the last error is returned.
func (r *Registry) Convert(ctx context.Context, data []byte, format domain.Format) (string, error) {
	processors := r.FindProcessors(format)
	if len(processors) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoProcessor, format)
	}

	var lastErr error
	for _, proc := range processors {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := proc.Process(ctx, data, format)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrNoText
		}
		if err == nil {
			r.log.Debug().
				Str("processor", proc.Name()).
				Str("format", string(format)).
				Int("chars", len(text)).
				Msg("document converted")
			return text, nil
		}

		r.log.Warn().Err(err).
			Str("processor", proc.Name()).
			Str("format", string(format)).
			Msg("processor failed, trying next")
		lastErr = err
	}

	return "", lastErr
}

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// DetectFormat sniffs the leading bytes. A ZIP container is reported as DOCX;
// the DOCX processor rejects archives without word/document.xml.
func DetectFormat(data []byte) (domain.Format, bool) {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return domain.FormatPDF, true
	case bytes.HasPrefix(data, zipMagic):
		return domain.FormatDOCX, true
	default:
		return "", false
	}
}
