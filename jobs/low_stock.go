package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/innkeep-pms/innkeep/internal/inventory"
	jobmetrics "github.com/innkeep-pms/innkeep/internal/jobs"
	"github.com/innkeep-pms/innkeep/internal/platform/cache"
	"github.com/innkeep-pms/innkeep/internal/shared"
)

const lowStockAlertKind = "low_stock"

// AlertSource lists items at or below par level. Satisfied by the stock
// service.
type AlertSource interface {
	LowStockAlerts(ctx context.Context, scope shared.ScopeFilter) ([]inventory.LowStockAlert, error)
}

// LowStockScanJob emits a log line per item under par. The redis marker
// suppresses repeats within its TTL so the nightly scan does not spam the
// same alert while stock stays low.
type LowStockScanJob struct {
	source  AlertSource
	marker  *cache.AlertMarker
	logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockScanJob constructs the job.
func NewLowStockScanJob(source AlertSource, marker *cache.AlertMarker, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{source: source, marker: marker, logger: logger}
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskLowStockScan)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	scope := shared.ScopeAll()
	if payload.PropertyID != 0 {
		scope = shared.ScopeProperty(payload.PropertyID)
	}
	alerts, err := j.source.LowStockAlerts(ctx, scope)
	if err != nil {
		return err
	}

	emitted := 0
	for _, alert := range alerts {
		fresh, err := j.marker.MarkOnce(ctx, lowStockAlertKind, alert.ItemID, alert.WarehouseID)
		if err != nil {
			return err
		}
		if !fresh {
			continue
		}
		emitted++
		j.metrics().AddLowStock(alert.PropertyID, 1)
		j.logger.Warn("low stock",
			slog.String("item_code", alert.ItemCode),
			slog.Int64("warehouse_id", alert.WarehouseID),
			slog.String("quantity", alert.Quantity.String()),
			slog.String("par_level", alert.ParLevel.String()))
	}
	j.logger.Info("low stock scan completed",
		slog.Int("under_par", len(alerts)),
		slog.Int("alerts_emitted", emitted))
	return nil
}

func (j *LowStockScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
