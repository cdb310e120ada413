// Package inventory implements batch-level stock accounting: the per
// item/warehouse ledger with weighted-average costing, FEFO lot selection,
// the append-only movement log, and waste tracking.
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	MovementReceipt     MovementType = "RECEIPT"
	MovementTransferIn  MovementType = "TRANSFER_IN"
	MovementTransferOut MovementType = "TRANSFER_OUT"
	MovementConsumption MovementType = "CONSUMPTION"
	MovementAdjustment  MovementType = "ADJUSTMENT"
	MovementReturn      MovementType = "RETURN"
	MovementWaste       MovementType = "WASTE"
)

// WasteType classifies shrinkage. No other value is permitted.
type WasteType string

const (
	WasteSpoilage       WasteType = "SPOILAGE"
	WasteExpired        WasteType = "EXPIRED"
	WasteDamaged        WasteType = "DAMAGED"
	WasteOverproduction WasteType = "OVERPRODUCTION"
	WastePreparation    WasteType = "PREPARATION_WASTE"
)

// Valid reports whether the waste type is one of the five permitted values.
func (t WasteType) Valid() bool {
	switch t {
	case WasteSpoilage, WasteExpired, WasteDamaged, WasteOverproduction, WastePreparation:
		return true
	}
	return false
}

// ItemRef is the slice of the stock item the accounting core needs.
type ItemRef struct {
	ID          int64
	PropertyID  int64
	Code        string
	Name        string
	Unit        string
	ParLevel    decimal.Decimal
	Consignment bool
	Active      bool
}

// WarehouseRef is the slice of the warehouse record the accounting core needs.
type WarehouseRef struct {
	ID         int64
	PropertyID int64
	Name       string
	Active     bool
}

// StockLevel is the ledger row: the authoritative quantity and
// weighted-average unit cost per (item, warehouse) pair.
type StockLevel struct {
	ItemID      int64
	WarehouseID int64
	Quantity    decimal.Decimal
	AvgCost     decimal.Decimal
	UpdatedAt   time.Time
}

// Value returns the ledger valuation for the pair, rounded to money precision.
func (l StockLevel) Value() decimal.Decimal {
	return RoundMoney(l.Quantity.Mul(l.AvgCost))
}

// StockBatch is a lot-level record. UnitCost is fixed at receipt time and
// never recomputed. Zero-quantity batches are kept for audit history.
type StockBatch struct {
	ID             int64
	ItemID         int64
	WarehouseID    int64
	BatchNumber    string
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	ExpirationDate *time.Time
	IsExpired      bool
	ReceivedAt     time.Time
}

// Expired reports whether the batch is unavailable: either explicitly
// flagged, or dated strictly before now. The flag and the date comparison
// are independent; either alone excludes the batch from available stock.
func (b StockBatch) Expired(now time.Time) bool {
	if b.IsExpired {
		return true
	}
	return b.ExpirationDate != nil && b.ExpirationDate.Before(now)
}

// ExpiresWithin reports whether the batch expires inside the threshold
// window and is not already expired.
func (b StockBatch) ExpiresWithin(now time.Time, threshold time.Duration) bool {
	if b.Expired(now) || b.ExpirationDate == nil {
		return false
	}
	return !b.ExpirationDate.After(now.Add(threshold))
}

// StockMovement is one immutable row of the movement log. Quantity is always
// a positive magnitude; the movement type carries direction.
type StockMovement struct {
	ID             int64
	ItemID         int64
	SrcWarehouseID int64
	DstWarehouseID int64
	BatchID        int64
	Type           MovementType
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	TotalCost      decimal.Decimal
	RefType        string
	RefID          string
	Reason         string
	ActorID        int64
	CreatedAt      time.Time
}

// WasteRecord describes one shrinkage event, paired 1:1 with a WASTE movement.
type WasteRecord struct {
	ID          int64
	ItemID      int64
	WarehouseID int64
	BatchID     int64
	Type        WasteType
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	TotalCost   decimal.Decimal
	Reason      string
	RecordedBy  int64
	RecordedAt  time.Time
}

// LowStockAlert reports a ledger quantity at or below the item par level.
type LowStockAlert struct {
	ItemID      int64
	ItemCode    string
	ItemName    string
	PropertyID  int64
	WarehouseID int64
	Quantity    decimal.Decimal
	ParLevel    decimal.Decimal
}

// MovementFilter narrows movement log queries.
type MovementFilter struct {
	ItemID      int64
	WarehouseID int64
	Type        MovementType
	From        time.Time
	To          time.Time
	Limit       int
}

// CostTotals aggregates movement costs over a period for waste reporting.
type CostTotals struct {
	Consumption decimal.Decimal
	Waste       decimal.Decimal
}

// ValuationEntry is one line of a stock valuation report.
type ValuationEntry struct {
	ItemID      int64
	ItemCode    string
	ItemName    string
	WarehouseID int64
	Quantity    decimal.Decimal
	AvgCost     decimal.Decimal
	TotalValue  decimal.Decimal
}
