package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
)

// Log writes the summary to the process logger.
type Log struct{}

// NewLog creates a Log notifier.
func NewLog() *Log { return &Log{} }

// Send implements Notifier.
func (*Log) Send(_ context.Context, s model.RunSummary) error {
	zap.L().Info("notify: run summary",
		zap.Int("retrieved", s.Retrieved),
		zap.Int("processed", s.Processed),
		zap.Int("failed", s.Failed),
		zap.Int("retried", s.Retried),
		zap.Int("synced", s.Synced),
		zap.Int("sync_failed", s.SyncFailed),
	)
	return nil
}
