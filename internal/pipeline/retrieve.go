package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/mail"
	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/store"
)

// Retriever turns new source e-mails into PENDING raw invoices.
type Retriever struct {
	source mail.Source
	store  store.Store
	newID  func() string
	now    func() time.Time
}

// NewRetriever creates a Retriever.
func NewRetriever(src mail.Source, st store.Store) *Retriever {
	return &Retriever{source: src, store: st, newID: newID, now: utcNow}
}

// Run ingests every new e-mail. An e-mail that already has a raw invoice is
// skipped and marked consumed again. A message is marked consumed only after
// its raw invoice is saved, so a failed save is picked up by the next run.
func (r *Retriever) Run(ctx context.Context) (model.RetrievalCounts, error) {
	var counts model.RetrievalCounts

	zap.L().Info("retrieval: starting")
	emails, err := r.source.FetchNew(ctx)
	if err != nil {
		return counts, eris.Wrap(err, "retrieval: fetch new mail")
	}
	counts.Total = len(emails)

	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return counts, eris.Wrap(err, "retrieval: interrupted")
		}

		log := zap.L().With(zap.String("email_id", email.ID))

		skipped, err := r.ingest(ctx, email)
		switch {
		case err != nil:
			counts.Failed++
			log.Error("retrieval: email failed", zap.Error(err))
		case skipped:
			counts.Skipped++
			log.Info("retrieval: email already ingested")
		default:
			counts.Success++
			log.Info("retrieval: email ingested")
		}
	}

	zap.L().Info("retrieval: complete",
		zap.Int("total", counts.Total),
		zap.Int("success", counts.Success),
		zap.Int("skipped", counts.Skipped),
		zap.Int("failed", counts.Failed),
	)
	return counts, nil
}

func (r *Retriever) ingest(ctx context.Context, email model.Email) (skipped bool, err error) {
	exists, err := r.store.RawInvoiceExistsForEmail(ctx, email.ID)
	if err != nil {
		return false, eris.Wrap(err, "retrieval: check existing")
	}

	if !exists {
		raw := model.NewRawInvoice(r.newID(), email, r.now())
		if err := r.store.SaveRawInvoice(ctx, raw); err != nil {
			return false, eris.Wrap(err, "retrieval: save raw invoice")
		}
	}

	// The raw invoice exists at this point; a mark failure only means the
	// message is offered again and skipped next time.
	if err := r.source.MarkConsumed(ctx, email.ID); err != nil {
		zap.L().Warn("retrieval: mark consumed failed", zap.String("email_id", email.ID), zap.Error(err))
	}
	return exists, nil
}
