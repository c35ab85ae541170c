// Package store persists raw and processed invoices.
package store

import (
	"context"
	"errors"

	"github.com/samber/lo"

	"github.com/sells-group/invoice-cli/internal/model"
)

// ErrNotFound is wrapped by updates that address an unknown id.
var ErrNotFound = errors.New("store: not found")

// Store defines the persistence interface for the invoice pipeline.
type Store interface {
	// Raw invoices
	SaveRawInvoice(ctx context.Context, inv *model.RawInvoice) error
	ListRawInvoices(ctx context.Context, statuses ...model.ProcessingStatus) ([]model.RawInvoice, error)
	UpdateRawInvoiceStatus(ctx context.Context, id string, status model.ProcessingStatus, errMsg string) error
	RawInvoiceExistsForEmail(ctx context.Context, emailID string) (bool, error)

	// Processed invoices
	SaveProcessedInvoice(ctx context.Context, inv *model.ProcessedInvoice) error
	ListProcessedInvoices(ctx context.Context, statuses ...model.SyncStatus) ([]model.ProcessedInvoice, error)
	UpdateProcessedSyncStatus(ctx context.Context, id string, status model.SyncStatus, errMsg string) error
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
	ProcessedInvoiceExistsForRaw(ctx context.Context, rawID string) (bool, error)

	// Reporting
	CountByStatus(ctx context.Context) (*model.StatusCounts, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func processingStrings(statuses []model.ProcessingStatus) []string {
	return lo.Map(statuses, func(s model.ProcessingStatus, _ int) string { return string(s) })
}

func syncStrings(statuses []model.SyncStatus) []string {
	return lo.Map(statuses, func(s model.SyncStatus, _ int) string { return string(s) })
}

func newStatusCounts() *model.StatusCounts {
	return &model.StatusCounts{
		Raw:       make(map[model.ProcessingStatus]int, len(model.ProcessingStatuses)),
		Processed: make(map[model.SyncStatus]int, len(model.SyncStatuses)),
	}
}
