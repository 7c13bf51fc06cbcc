// Package objectstore uploads CV files to S3-compatible object storage and
// returns a public link to each object.
package objectstore

import (
	"context"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/cvintake/cvintake-backend/pkg/config"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Store uploads an object and returns its public URL
type Store interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// New builds the store selected by cfg.Driver
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("objectstore: bucket not configured")
	}

	switch cfg.Driver {
	case config.StorageDriverS3, "":
		return NewS3Store(ctx, cfg)
	case config.StorageDriverMinIO:
		return NewMinIOStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("objectstore: unknown driver %q", cfg.Driver)
	}
}

// ObjectKey places the sanitised filename under the submission ID. A name
// that sanitises to nothing becomes "cv" with the original extension.
func ObjectKey(submissionID, filename string) string {
	ext := path.Ext(filename)
	stem := SecureFilename(strings.TrimSuffix(filename, ext))
	if stem == "" {
		stem = "cv"
	}
	if ext = SecureFilename(strings.ToLower(ext)); ext != "" {
		stem += "." + ext
	}
	return submissionID + "/" + stem
}

var windowsDeviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true,
}

// SecureFilename reduces a client-supplied filename to ASCII letters, digits,
// '_', '.' and '-'. Accents are folded, path separators and whitespace become
// '_', and leading or trailing dots and underscores are dropped. The result
// may be empty.
func SecureFilename(filename string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), filename)
	if err != nil {
		folded = filename
	}

	folded = strings.NewReplacer("/", " ", "\\", " ").Replace(folded)
	folded = strings.Join(strings.Fields(folded), "_")

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}

	name := strings.Trim(b.String(), "._")
	if name != "" && windowsDeviceNames[strings.ToUpper(strings.SplitN(name, ".", 2)[0])] {
		name = "_" + name
	}
	return name
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
