package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/export"
	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/store"
)

// Exporter appends NOT_SYNCED processed invoices to the spreadsheet.
type Exporter struct {
	appender export.Appender
	store    store.Store
}

// NewExporter creates an Exporter.
func NewExporter(a export.Appender, st store.Store) *Exporter {
	return &Exporter{appender: a, store: st}
}

// Run appends each unsynced invoice once. An append failure marks that
// invoice FAILED until it is reset; there is no retry here.
func (e *Exporter) Run(ctx context.Context) (model.ExportCounts, error) {
	var counts model.ExportCounts

	zap.L().Info("export: starting")
	batch, err := e.store.ListProcessedInvoices(ctx, model.SyncStatusNotSynced)
	if err != nil {
		return counts, eris.Wrap(err, "export: list unsynced invoices")
	}
	counts.Total = len(batch)

	for i := range batch {
		inv := &batch[i]
		log := zap.L().With(
			zap.String("processed_invoice_id", inv.ID),
			zap.String("invoice_number", inv.Data.InvoiceNumber),
		)

		if err := e.appender.AppendRow(ctx, inv); err != nil {
			counts.Failed++
			log.Error("export: append failed", zap.Error(err))
			if uerr := e.store.UpdateProcessedSyncStatus(ctx, inv.ID, model.SyncStatusFailed, err.Error()); uerr != nil {
				log.Error("export: status update failed", zap.Error(uerr))
			}
			continue
		}

		if err := e.store.UpdateProcessedSyncStatus(ctx, inv.ID, model.SyncStatusSynced, ""); err != nil {
			counts.Failed++
			log.Error("export: row appended but status update failed", zap.Error(err))
			continue
		}

		counts.Success++
		log.Info("export: invoice synced")
	}

	zap.L().Info("export: complete",
		zap.Int("total", counts.Total),
		zap.Int("success", counts.Success),
		zap.Int("failed", counts.Failed),
	)
	return counts, nil
}
