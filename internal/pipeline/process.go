package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/extract"
	"github.com/sells-group/invoice-cli/internal/mapping"
	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/resilience"
	"github.com/sells-group/invoice-cli/internal/store"
)

// Outcome is the result of processing one raw invoice.
type Outcome int

const (
	OutcomeProcessed Outcome = iota
	OutcomeFailed
	OutcomeRetry
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeFailed:
		return "failed"
	case OutcomeRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// DuplicateMessage is the error recorded on a raw invoice whose number is
// already taken by a processed invoice.
func DuplicateMessage(number string) string {
	return "Duplicate invoice number: " + number
}

// Processor moves eligible raw invoices through extraction, mapping and
// duplicate detection.
type Processor struct {
	extractor extract.Extractor
	store     store.Store
	newID     func() string
	now       func() time.Time
}

// NewProcessor creates a Processor. The extractor is expected to carry its
// own retry policy.
func NewProcessor(ext extract.Extractor, st store.Store) *Processor {
	return &Processor{extractor: ext, store: st, newID: newID, now: utcNow}
}

// Run processes every PENDING and RETRY raw invoice. Items are isolated: an
// error or panic on one never stops the rest of the batch.
func (p *Processor) Run(ctx context.Context) (model.ProcessingCounts, error) {
	var counts model.ProcessingCounts

	zap.L().Info("processing: starting")
	batch, err := p.store.ListRawInvoices(ctx, model.ProcessingStatusPending, model.ProcessingStatusRetry)
	if err != nil {
		return counts, eris.Wrap(err, "processing: list eligible raw invoices")
	}
	counts.Total = len(batch)

	for i := range batch {
		if err := ctx.Err(); err != nil {
			return counts, eris.Wrap(err, "processing: interrupted")
		}

		raw := &batch[i]
		log := zap.L().With(zap.String("raw_invoice_id", raw.ID))

		outcome, err := p.Process(ctx, raw)
		switch outcome {
		case OutcomeProcessed:
			counts.Success++
			log.Info("processing: invoice processed")
		case OutcomeRetry:
			counts.Retried++
			log.Warn("processing: invoice parked for retry", zap.Error(err))
		default:
			counts.Failed++
			log.Error("processing: invoice failed", zap.Error(err))
		}
	}

	zap.L().Info("processing: complete",
		zap.Int("total", counts.Total),
		zap.Int("success", counts.Success),
		zap.Int("failed", counts.Failed),
		zap.Int("retried", counts.Retried),
	)
	return counts, nil
}

// Process runs the state machine for one raw invoice and performs exactly
// one status transition. The returned error describes a RETRY or FAILED
// outcome; a duplicate is FAILED with a nil error.
func (p *Processor) Process(ctx context.Context, raw *model.RawInvoice) (outcome Outcome, err error) {
	transitioned := false
	transition := func(status model.ProcessingStatus, msg string) {
		transitioned = true
		if uerr := p.store.UpdateRawInvoiceStatus(ctx, raw.ID, status, msg); uerr != nil {
			zap.L().Error("processing: status update failed",
				zap.String("raw_invoice_id", raw.ID),
				zap.String("status", string(status)),
				zap.Error(uerr),
			)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFailed
			err = eris.Errorf("processing: panic: %v", r)
			if !transitioned {
				transition(model.ProcessingStatusFailed, err.Error())
			}
		}
	}()

	fields, err := p.extractor.Extract(ctx, raw.Email.AttachmentPath)
	if err != nil {
		if resilience.IsQuotaError(err) {
			transition(model.ProcessingStatusRetry, err.Error())
			return OutcomeRetry, err
		}
		transition(model.ProcessingStatusFailed, err.Error())
		return OutcomeFailed, eris.Wrap(err, "processing: extract")
	}

	data, err := mapping.ToInvoiceData(fields)
	if err != nil {
		transition(model.ProcessingStatusFailed, err.Error())
		return OutcomeFailed, err
	}

	dup, err := p.store.InvoiceNumberExists(ctx, data.InvoiceNumber)
	if err != nil {
		err = eris.Wrap(err, "processing: check duplicate")
		transition(model.ProcessingStatusFailed, err.Error())
		return OutcomeFailed, err
	}
	if dup {
		// A processed invoice owned by this raw invoice means an earlier run
		// saved it but could not mark the raw invoice PROCESSED.
		own, err := p.store.ProcessedInvoiceExistsForRaw(ctx, raw.ID)
		if err != nil {
			err = eris.Wrap(err, "processing: check duplicate")
			transition(model.ProcessingStatusFailed, err.Error())
			return OutcomeFailed, err
		}
		if own {
			transitioned = true
			return p.markProcessed(ctx, raw)
		}
		transition(model.ProcessingStatusFailed, DuplicateMessage(data.InvoiceNumber))
		return OutcomeFailed, nil
	}

	processed := model.NewProcessedInvoice(p.newID(), raw.ID, *data, p.now())
	if err := p.store.SaveProcessedInvoice(ctx, processed); err != nil {
		err = eris.Wrap(err, "processing: save processed invoice")
		transition(model.ProcessingStatusFailed, err.Error())
		return OutcomeFailed, err
	}

	transitioned = true
	return p.markProcessed(ctx, raw)
}

// markProcessed moves raw to PROCESSED. If the update fails the raw invoice
// keeps its status and the next run completes the transition without saving
// a second processed invoice.
func (p *Processor) markProcessed(ctx context.Context, raw *model.RawInvoice) (Outcome, error) {
	if err := p.store.UpdateRawInvoiceStatus(ctx, raw.ID, model.ProcessingStatusProcessed, ""); err != nil {
		return OutcomeFailed, eris.Wrapf(err, "processing: mark %s processed", raw.ID)
	}
	return OutcomeProcessed, nil
}
