package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Local stores attachments in a directory on disk.
type Local struct {
	dir string
}

// NewLocal creates the directory if needed and returns a Local storage rooted at it.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "filestore: resolve %s", dir)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, eris.Wrapf(err, "filestore: create dir %s", abs)
	}
	return &Local{dir: abs}, nil
}

// Scheme implements Storage.
func (l *Local) Scheme() string { return SchemeFile }

// Save writes data under the storage directory and returns its absolute path.
func (l *Local) Save(_ context.Context, name string, data []byte) (string, error) {
	p := filepath.Join(l.dir, SanitizeName(name))
	if err := os.WriteFile(p, data, 0o640); err != nil {
		return "", eris.Wrapf(err, "filestore: write %s", p)
	}
	return p, nil
}

// Fetch reads a local path or file:// locator.
func (l *Local) Fetch(_ context.Context, locator string) ([]byte, error) {
	p := strings.TrimPrefix(locator, "file://")
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, eris.Wrapf(err, "filestore: read %s", p)
	}
	return data, nil
}
