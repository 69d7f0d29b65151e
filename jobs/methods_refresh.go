package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Refresher warms the payment-method display-name cache.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// NewMethodsRefreshHandler builds the handler for TaskMethodsRefresh.
func NewMethodsRefreshHandler(registry Refresher, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := registry.Refresh(ctx); err != nil {
			return err
		}
		logger.Info("payment-method cache refreshed")
		return nil
	}
}
