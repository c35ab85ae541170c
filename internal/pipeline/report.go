package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/notify"
)

// Reporter sends the run summary. Delivery failures never fail a run.
type Reporter struct {
	notifier notify.Notifier
}

// NewReporter creates a Reporter.
func NewReporter(n notify.Notifier) *Reporter {
	return &Reporter{notifier: n}
}

// Report sends s and reports whether delivery succeeded.
func (r *Reporter) Report(ctx context.Context, s model.RunSummary) bool {
	if err := r.notifier.Send(ctx, s); err != nil {
		zap.L().Error("notify: summary not delivered", zap.Error(err))
		return false
	}
	zap.L().Info("notify: summary delivered")
	return true
}
