// Package filestore persists invoice attachments and reads them back by
// locator. Locators are absolute paths for the local backend,
// ftp://host[:port]/path for FTP and gs://bucket/object for GCS.
package filestore

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/config"
)

// Fetcher reads a stored attachment by locator.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// Storage saves attachments and returns their locators.
type Storage interface {
	Fetcher
	Save(ctx context.Context, name string, data []byte) (string, error)
	Scheme() string
}

// Locator schemes.
const (
	SchemeFile = "file"
	SchemeFTP  = "ftp"
	SchemeGCS  = "gs"
)

// New creates the Storage selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocal(cfg.LocalDir)
	case "ftp":
		return NewFTP(cfg.FTPURL, FTPOptions{})
	case "gcs":
		return NewGCS(ctx, cfg.Bucket, cfg.Prefix, cfg.CredentialsFile)
	default:
		return nil, eris.Errorf("filestore: unknown backend %q", cfg.Backend)
	}
}

// SchemeOf returns the scheme of a locator; bare paths are SchemeFile.
func SchemeOf(locator string) string {
	scheme, _, ok := strings.Cut(locator, "://")
	if !ok {
		return SchemeFile
	}
	return strings.ToLower(scheme)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName reduces an attachment file name to a safe single path element.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "attachment.pdf"
	}
	return name
}
