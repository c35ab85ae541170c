package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/store"
)

// ResetCounts reports how many records a reset moved.
type ResetCounts struct {
	Raw       int `json:"raw"`
	Processed int `json:"processed"`
}

// Resetter returns records to states the stages pick up again.
type Resetter struct {
	store store.Store
}

// NewResetter creates a Resetter.
func NewResetter(st store.Store) *Resetter {
	return &Resetter{store: st}
}

// ResetFailed moves FAILED raw invoices to RETRY and processed invoices
// whose export failed back to NOT_SYNCED.
func (r *Resetter) ResetFailed(ctx context.Context) (ResetCounts, error) {
	var counts ResetCounts
	var err error

	if counts.Processed, err = r.resetProcessed(ctx, model.SyncStatusFailed); err != nil {
		return counts, err
	}
	counts.Raw, err = r.resetRaw(ctx, model.ProcessingStatusFailed)
	return counts, err
}

// ResetPipeline moves SYNCED processed invoices back to NOT_SYNCED and
// FAILED or RETRY raw invoices to RETRY, so the next run exports everything
// again and reprocesses every unfinished raw invoice.
func (r *Resetter) ResetPipeline(ctx context.Context) (ResetCounts, error) {
	var counts ResetCounts
	var err error

	if counts.Processed, err = r.resetProcessed(ctx, model.SyncStatusSynced); err != nil {
		return counts, err
	}
	counts.Raw, err = r.resetRaw(ctx, model.ProcessingStatusFailed, model.ProcessingStatusRetry)
	return counts, err
}

func (r *Resetter) resetProcessed(ctx context.Context, from ...model.SyncStatus) (int, error) {
	invs, err := r.store.ListProcessedInvoices(ctx, from...)
	if err != nil {
		return 0, eris.Wrap(err, "reset: list processed invoices")
	}

	n := 0
	for _, inv := range invs {
		if err := r.store.UpdateProcessedSyncStatus(ctx, inv.ID, model.SyncStatusNotSynced, ""); err != nil {
			return n, eris.Wrapf(err, "reset: processed invoice %s", inv.ID)
		}
		n++
	}

	zap.L().Info("reset: processed invoices moved to not synced", zap.Int("count", n))
	return n, nil
}

func (r *Resetter) resetRaw(ctx context.Context, from ...model.ProcessingStatus) (int, error) {
	raws, err := r.store.ListRawInvoices(ctx, from...)
	if err != nil {
		return 0, eris.Wrap(err, "reset: list raw invoices")
	}

	n := 0
	for _, raw := range raws {
		if err := r.store.UpdateRawInvoiceStatus(ctx, raw.ID, model.ProcessingStatusRetry, ""); err != nil {
			return n, eris.Wrapf(err, "reset: raw invoice %s", raw.ID)
		}
		n++
	}

	zap.L().Info("reset: raw invoices moved to retry", zap.Int("count", n))
	return n, nil
}
