package filestore

import (
	"context"

	"github.com/rotisserie/eris"
)

// Router dispatches Fetch by locator scheme, so attachments saved under a
// previous storage backend stay readable after a backend switch.
type Router struct {
	byScheme map[string]Fetcher
}

// NewRouter registers each storage under its scheme. Local paths are always
// readable.
func NewRouter(stores ...Storage) *Router {
	r := &Router{byScheme: map[string]Fetcher{SchemeFile: &Local{}}}
	for _, s := range stores {
		r.byScheme[s.Scheme()] = s
	}
	return r
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, locator string) ([]byte, error) {
	scheme := SchemeOf(locator)
	f, ok := r.byScheme[scheme]
	if !ok {
		return nil, eris.Errorf("filestore: no storage configured for scheme %q", scheme)
	}
	return f.Fetch(ctx, locator)
}
