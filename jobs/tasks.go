// Package jobs wires background stock maintenance onto asynq: the nightly
// expiration sweep and the low-stock scan.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskExpirySweep flags batches whose expiration date has passed.
	TaskExpirySweep = "stock:expiry_sweep"
	// TaskLowStockScan emits alerts for items at or below par level.
	TaskLowStockScan = "stock:low_stock_scan"
)

// ExpirySweepPayload selects which warehouses to sweep. An empty WarehouseIDs
// slice means every active warehouse.
type ExpirySweepPayload struct {
	WarehouseIDs []int64 `json:"warehouse_ids,omitempty"`
}

// NewExpirySweepTask constructs an expiry sweep task.
func NewExpirySweepTask(payload ExpirySweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpirySweep, data), nil
}

// LowStockScanPayload selects which property to scan. Zero means all.
type LowStockScanPayload struct {
	PropertyID int64 `json:"property_id,omitempty"`
}

// NewLowStockScanTask constructs a low-stock scan task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}
