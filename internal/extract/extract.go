// Package extract calls the language model that reads invoice PDFs and
// returns the loosely-typed field map consumed by the mapping package.
package extract

import (
	"context"
)

// Extractor returns the raw extraction fields for the attachment at locator.
// Rate-limit and unavailability failures are reported as
// *resilience.ProviderError.
type Extractor interface {
	Extract(ctx context.Context, locator string) (map[string]any, error)
}
