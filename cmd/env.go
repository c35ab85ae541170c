package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/export"
	"github.com/sells-group/invoice-cli/internal/extract"
	"github.com/sells-group/invoice-cli/internal/filestore"
	"github.com/sells-group/invoice-cli/internal/mail"
	"github.com/sells-group/invoice-cli/internal/notify"
	"github.com/sells-group/invoice-cli/internal/pipeline"
	"github.com/sells-group/invoice-cli/internal/store"
)

// initStore opens the configured store and brings its schema up to date.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// stageEnv builds stage dependencies on demand, so each command only
// initializes the collaborators it uses. Callers should defer Close.
type stageEnv struct {
	store   store.Store
	files   filestore.Storage
	closers []io.Closer
}

func newStageEnv(ctx context.Context) (*stageEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	return &stageEnv{store: st, closers: []io.Closer{st}}, nil
}

// Close releases everything in reverse order of creation.
func (e *stageEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i].Close()
	}
}

func (e *stageEnv) storage(ctx context.Context) (filestore.Storage, error) {
	if e.files != nil {
		return e.files, nil
	}
	files, err := filestore.New(ctx, cfg.Storage)
	if err != nil {
		return nil, eris.Wrap(err, "init attachment storage")
	}
	if c, ok := files.(io.Closer); ok {
		e.closers = append(e.closers, c)
	}
	e.files = files
	return files, nil
}

func (e *stageEnv) retriever(ctx context.Context) (*pipeline.Retriever, error) {
	files, err := e.storage(ctx)
	if err != nil {
		return nil, err
	}
	src, err := mail.NewGmail(ctx, cfg.Mail, files)
	if err != nil {
		return nil, eris.Wrap(err, "init gmail")
	}
	return pipeline.NewRetriever(src, e.store), nil
}

func (e *stageEnv) processor(ctx context.Context) (*pipeline.Processor, error) {
	files, err := e.storage(ctx)
	if err != nil {
		return nil, err
	}
	ext, err := extract.New(cfg.Extraction, filestore.NewRouter(files))
	if err != nil {
		return nil, eris.Wrap(err, "init extractor")
	}
	return pipeline.NewProcessor(ext, e.store), nil
}

func (e *stageEnv) exporter(ctx context.Context) (*pipeline.Exporter, error) {
	app, err := export.New(ctx, cfg.Export)
	if err != nil {
		return nil, eris.Wrap(err, "init export")
	}
	return pipeline.NewExporter(app, e.store), nil
}

func (e *stageEnv) reporter() (*pipeline.Reporter, error) {
	n, err := notify.New(cfg.Notify)
	if err != nil {
		return nil, eris.Wrap(err, "init notify")
	}
	return pipeline.NewReporter(n), nil
}

func (e *stageEnv) pipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	r, err := e.retriever(ctx)
	if err != nil {
		return nil, err
	}
	p, err := e.processor(ctx)
	if err != nil {
		return nil, err
	}
	x, err := e.exporter(ctx)
	if err != nil {
		return nil, err
	}
	n, err := e.reporter()
	if err != nil {
		return nil, err
	}
	return pipeline.New(r, p, x, n), nil
}
