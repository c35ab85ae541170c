package notify

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
)

// Multi fans a summary out to several notifiers. Every notifier is tried;
// the failures are collected into one error.
type Multi []Notifier

// Send implements Notifier.
func (m Multi) Send(ctx context.Context, s model.RunSummary) error {
	var result *multierror.Error
	for _, n := range m {
		if err := n.Send(ctx, s); err != nil {
			zap.L().Warn("notify: channel failed", zap.Error(err))
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
