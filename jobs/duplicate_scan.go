package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/tillpoint/tillpoint/internal/ledger"
	"github.com/tillpoint/tillpoint/internal/movements"
)

// MovementLister supplies the ledger snapshot for a scan.
type MovementLister interface {
	List(ctx context.Context, filter movements.ListFilter) ([]ledger.Movement, error)
}

// NewDuplicateScanHandler builds the handler for TaskDuplicateScan. The scan
// is diagnostic only: it logs every heuristic duplicate group and the balance
// skew its extra copies cause, leaving resolution to an operator.
func NewDuplicateScanHandler(source MovementLister, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		all, err := source.List(ctx, movements.ListFilter{})
		if err != nil {
			return err
		}
		groups := ledger.GroupDuplicates(all)
		if len(groups) == 0 {
			logger.Info("duplicate scan clean", slog.Int("movements", len(all)))
			return nil
		}
		for _, group := range groups {
			impact := ledger.Impact([]ledger.DuplicateGroup{group})
			attrs := []any{
				slog.String("signature", group.Key),
				slog.Int("occurrences", group.Count),
			}
			for method, delta := range impact {
				attrs = append(attrs, slog.String("impact_"+method, delta.StringFixed(2)))
			}
			logger.Warn("duplicate group detected", attrs...)
		}
		return nil
	}
}
