package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/innkeep-pms/innkeep/internal/jobs"
	"github.com/innkeep-pms/innkeep/internal/masterdata"
	"github.com/innkeep-pms/innkeep/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Sweeper flips the expired flag on dated batches. Satisfied by the stock
// service.
type Sweeper interface {
	SweepExpired(ctx context.Context, warehouseID int64, actorID int64) (int, error)
}

// WarehouseLister resolves the sweep targets when the payload names none.
type WarehouseLister interface {
	ListWarehouses(ctx context.Context, scope shared.ScopeFilter) ([]masterdata.Warehouse, error)
}

// ExpirySweepJob walks warehouses and marks batches past their expiration
// date. The sweep is idempotent; re-running flags nothing twice.
type ExpirySweepJob struct {
	sweeper    Sweeper
	warehouses WarehouseLister
	logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewExpirySweepJob constructs the job.
func NewExpirySweepJob(sweeper Sweeper, warehouses WarehouseLister, logger *slog.Logger) *ExpirySweepJob {
	return &ExpirySweepJob{sweeper: sweeper, warehouses: warehouses, logger: logger}
}

// Handle processes TaskExpirySweep tasks.
func (j *ExpirySweepJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	var payload ExpirySweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskExpirySweep)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	targets := payload.WarehouseIDs
	if len(targets) == 0 {
		warehouses, err := j.warehouses.ListWarehouses(ctx, shared.ScopeAll())
		if err != nil {
			return err
		}
		for _, wh := range warehouses {
			if wh.Active {
				targets = append(targets, wh.ID)
			}
		}
	}

	total := 0
	for _, warehouseID := range targets {
		flipped, err := j.sweeper.SweepExpired(ctx, warehouseID, 0)
		if err != nil {
			return err
		}
		j.metrics().AddExpired(warehouseID, flipped)
		total += flipped
	}
	j.logger.Info("expiry sweep completed",
		slog.Int("warehouses", len(targets)),
		slog.Int("expired_batches", total))
	return nil
}

func (j *ExpirySweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
