// Package pipeline runs the invoice stages: retrieval, processing, export and
// notification. Each stage reads its batch from the store and records every
// outcome back to it; nothing is carried between runs in memory.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
)

// Result collects the counts of one full run.
type Result struct {
	Retrieval  model.RetrievalCounts  `json:"retrieval"`
	Processing model.ProcessingCounts `json:"processing"`
	Export     model.ExportCounts     `json:"export"`
	Summary    model.RunSummary       `json:"summary"`
	Duration   time.Duration          `json:"duration"`
}

// Pipeline runs the four stages in order.
type Pipeline struct {
	retriever *Retriever
	processor *Processor
	exporter  *Exporter
	reporter  *Reporter
}

// New creates a Pipeline from its stages.
func New(r *Retriever, p *Processor, e *Exporter, n *Reporter) *Pipeline {
	return &Pipeline{retriever: r, processor: p, exporter: e, reporter: n}
}

// Run executes retrieval, processing and export, then reports the summary.
// A stage that cannot load its batch aborts the run; the summary of what
// was gathered so far is still sent.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("run_id", uuid.NewString()))
	log.Info("pipeline: starting run")

	res := &Result{}
	err := p.runStages(ctx, res)

	res.Summary = model.NewRunSummary(res.Retrieval, res.Processing, res.Export)
	p.reporter.Report(ctx, res.Summary)
	res.Duration = time.Since(start)

	if err != nil {
		log.Error("pipeline: run aborted", zap.Error(err), zap.Duration("duration", res.Duration))
		return res, err
	}

	log.Info("pipeline: run complete",
		zap.Int("retrieved", res.Summary.Retrieved),
		zap.Int("processed", res.Summary.Processed),
		zap.Int("failed", res.Summary.Failed),
		zap.Int("retried", res.Summary.Retried),
		zap.Int("synced", res.Summary.Synced),
		zap.Int("sync_failed", res.Summary.SyncFailed),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (p *Pipeline) runStages(ctx context.Context, res *Result) error {
	var err error

	if res.Retrieval, err = p.retriever.Run(ctx); err != nil {
		return eris.Wrap(err, "pipeline: retrieval")
	}
	if res.Processing, err = p.processor.Run(ctx); err != nil {
		return eris.Wrap(err, "pipeline: processing")
	}
	if res.Export, err = p.exporter.Run(ctx); err != nil {
		return eris.Wrap(err, "pipeline: export")
	}
	return nil
}

func newID() string { return uuid.NewString() }

func utcNow() time.Time { return time.Now().UTC() }
