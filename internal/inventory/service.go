package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/innkeep-pms/innkeep/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetLevel(ctx context.Context, itemID, warehouseID int64) (StockLevel, error)
	ListBatches(ctx context.Context, itemID, warehouseID int64, includeExpired bool) ([]StockBatch, error)
	ListWarehouseBatches(ctx context.Context, warehouseID int64) ([]StockBatch, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error)
	LowStock(ctx context.Context, scope shared.ScopeFilter) ([]LowStockAlert, error)
	Valuation(ctx context.Context, scope shared.ScopeFilter, warehouseID int64) ([]ValuationEntry, error)
	MovementCostTotals(ctx context.Context, warehouseID int64, from, to time.Time) (CostTotals, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock accounting operations. Every mutating operation
// runs as one transaction: ledger update, batch updates and movement inserts
// commit or roll back together.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// ReceiveInput describes a stock receipt. When BatchNumber is set a batch is
// created alongside the ledger increase; otherwise the ledger alone is
// increased.
type ReceiveInput struct {
	ItemID         int64
	WarehouseID    int64
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	BatchNumber    string
	ExpirationDate *time.Time
	RefType        string
	RefID          string
	Reason         string
	ActorID        int64
}

// ReceiveResult reports the post-receipt state.
type ReceiveResult struct {
	Level    StockLevel
	Batch    *StockBatch
	Movement StockMovement
}

// Receive posts a receipt as a single transaction.
func (s *Service) Receive(ctx context.Context, input ReceiveInput) (ReceiveResult, error) {
	var result ReceiveResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		result, err = ApplyReceipt(ctx, tx, input)
		return err
	})
	if err != nil {
		return ReceiveResult{}, err
	}
	s.recordAudit(ctx, input.ActorID, "stock:receive", input.ItemID, map[string]any{
		"warehouse_id": input.WarehouseID,
		"qty":          input.Quantity.String(),
		"batch":        input.BatchNumber,
	})
	return result, nil
}

// ApplyReceipt performs the receipt steps against an open transaction. It is
// exported so the purchase-order receiving flow can share one transaction
// with its line updates.
func ApplyReceipt(ctx context.Context, tx TxRepository, input ReceiveInput) (ReceiveResult, error) {
	if input.ItemID == 0 || input.WarehouseID == 0 {
		return ReceiveResult{}, errValidation("item and warehouse required")
	}
	if !input.Quantity.IsPositive() {
		return ReceiveResult{}, errValidation("quantity must be positive")
	}
	if input.UnitCost.IsNegative() {
		return ReceiveResult{}, errValidation("unit cost must not be negative")
	}

	if _, err := tx.GetItem(ctx, input.ItemID); err != nil {
		return ReceiveResult{}, err
	}
	warehouse, err := tx.GetWarehouse(ctx, input.WarehouseID)
	if err != nil {
		return ReceiveResult{}, err
	}
	if !warehouse.Active {
		return ReceiveResult{}, errValidation("warehouse %d is inactive", warehouse.ID)
	}

	now := time.Now().UTC()
	qty := RoundQty(input.Quantity)
	cost := RoundCost(input.UnitCost)

	level, err := tx.GetLevelForUpdate(ctx, input.ItemID, input.WarehouseID)
	if err != nil && !errors.Is(err, ErrLevelNotFound) {
		return ReceiveResult{}, err
	}
	if errors.Is(err, ErrLevelNotFound) {
		level = StockLevel{ItemID: input.ItemID, WarehouseID: input.WarehouseID}
	}
	level.AvgCost = BlendAvgCost(level.Quantity, level.AvgCost, qty, cost)
	level.Quantity = RoundQty(level.Quantity.Add(qty))
	level.UpdatedAt = now
	if err := tx.UpsertLevel(ctx, level); err != nil {
		return ReceiveResult{}, err
	}

	var batch *StockBatch
	var batchID int64
	if input.BatchNumber != "" {
		b := StockBatch{
			ItemID:         input.ItemID,
			WarehouseID:    input.WarehouseID,
			BatchNumber:    input.BatchNumber,
			Quantity:       qty,
			UnitCost:       cost,
			ExpirationDate: input.ExpirationDate,
			ReceivedAt:     now,
		}
		id, err := tx.InsertBatch(ctx, b)
		if err != nil {
			return ReceiveResult{}, err
		}
		b.ID = id
		batch = &b
		batchID = id
	}

	movement := StockMovement{
		ItemID:         input.ItemID,
		DstWarehouseID: input.WarehouseID,
		BatchID:        batchID,
		Type:           MovementReceipt,
		Quantity:       qty,
		UnitCost:       cost,
		TotalCost:      MovementTotal(qty, cost),
		RefType:        input.RefType,
		RefID:          input.RefID,
		Reason:         input.Reason,
		ActorID:        input.ActorID,
		CreatedAt:      now,
	}
	mvID, err := tx.InsertMovement(ctx, movement)
	if err != nil {
		return ReceiveResult{}, err
	}
	movement.ID = mvID

	return ReceiveResult{Level: level, Batch: batch, Movement: movement}, nil
}

// ConsumeInput describes a consumption. BatchID pins a specific lot;
// otherwise FEFO selection walks the eligible batches.
type ConsumeInput struct {
	ItemID      int64
	WarehouseID int64
	BatchID     int64
	Quantity    decimal.Decimal
	RefType     string
	RefID       string
	Reason      string
	ActorID     int64
}

// ConsumeResult reports the batches drawn from and the movements emitted.
type ConsumeResult struct {
	Level     StockLevel
	Draws     []BatchDraw
	Movements []StockMovement
}

// Consume posts a consumption. The availability check runs before any
// mutation; a shortfall leaves ledger, batches and movement log untouched.
func (s *Service) Consume(ctx context.Context, input ConsumeInput) (ConsumeResult, error) {
	var result ConsumeResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		result, err = applyConsumption(ctx, tx, input, MovementConsumption)
		return err
	})
	if err != nil {
		return ConsumeResult{}, err
	}
	s.recordAudit(ctx, input.ActorID, "stock:consume", input.ItemID, map[string]any{
		"warehouse_id": input.WarehouseID,
		"qty":          input.Quantity.String(),
		"batches":      len(result.Draws),
	})
	return result, nil
}

// Return posts a return to supplier: an outbound decrement referencing the
// originating purchase order.
func (s *Service) Return(ctx context.Context, input ConsumeInput) (ConsumeResult, error) {
	var result ConsumeResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		result, err = applyConsumption(ctx, tx, input, MovementReturn)
		return err
	})
	if err != nil {
		return ConsumeResult{}, err
	}
	s.recordAudit(ctx, input.ActorID, "stock:return", input.ItemID, map[string]any{
		"warehouse_id": input.WarehouseID,
		"qty":          input.Quantity.String(),
		"ref":          input.RefID,
	})
	return result, nil
}

func applyConsumption(ctx context.Context, tx TxRepository, input ConsumeInput, mvType MovementType) (ConsumeResult, error) {
	if input.ItemID == 0 || input.WarehouseID == 0 {
		return ConsumeResult{}, errValidation("item and warehouse required")
	}
	if !input.Quantity.IsPositive() {
		return ConsumeResult{}, errValidation("quantity must be positive")
	}

	now := time.Now().UTC()
	qty := RoundQty(input.Quantity)

	level, err := tx.GetLevelForUpdate(ctx, input.ItemID, input.WarehouseID)
	if err != nil {
		if errors.Is(err, ErrLevelNotFound) {
			return ConsumeResult{}, errInsufficient("no stock for item %d in warehouse %d", input.ItemID, input.WarehouseID)
		}
		return ConsumeResult{}, err
	}
	if level.Quantity.LessThan(qty) {
		return ConsumeResult{}, errInsufficient("requested %s, ledger holds %s", qty, level.Quantity)
	}

	var draws []BatchDraw
	switch {
	case input.BatchID != 0:
		batch, err := tx.GetBatchForUpdate(ctx, input.BatchID)
		if err != nil {
			return ConsumeResult{}, err
		}
		if batch.ItemID != input.ItemID || batch.WarehouseID != input.WarehouseID {
			return ConsumeResult{}, errValidation("batch %d does not belong to item %d in warehouse %d", batch.ID, input.ItemID, input.WarehouseID)
		}
		if batch.Expired(now) {
			return ConsumeResult{}, errInvalidState("batch %s is expired", batch.BatchNumber)
		}
		if batch.Quantity.LessThan(qty) {
			return ConsumeResult{}, errInsufficient("batch %s holds %s, requested %s", batch.BatchNumber, batch.Quantity, qty)
		}
		draws = []BatchDraw{{Batch: batch, Qty: qty}}
	default:
		batches, err := tx.ListBatchesForUpdate(ctx, input.ItemID, input.WarehouseID)
		if err != nil {
			return ConsumeResult{}, err
		}
		if len(batches) > 0 {
			draws, err = PlanFEFO(batches, qty, now)
			if err != nil {
				return ConsumeResult{}, err
			}
		}
	}

	result := ConsumeResult{Draws: draws}
	for _, draw := range draws {
		remaining := RoundQty(draw.Batch.Quantity.Sub(draw.Qty))
		if err := tx.SetBatchQuantity(ctx, draw.Batch.ID, remaining); err != nil {
			return ConsumeResult{}, err
		}
		movement := StockMovement{
			ItemID:         input.ItemID,
			SrcWarehouseID: input.WarehouseID,
			BatchID:        draw.Batch.ID,
			Type:           mvType,
			Quantity:       draw.Qty,
			UnitCost:       draw.Batch.UnitCost,
			TotalCost:      MovementTotal(draw.Qty, draw.Batch.UnitCost),
			RefType:        input.RefType,
			RefID:          input.RefID,
			Reason:         input.Reason,
			ActorID:        input.ActorID,
			CreatedAt:      now,
		}
		id, err := tx.InsertMovement(ctx, movement)
		if err != nil {
			return ConsumeResult{}, err
		}
		movement.ID = id
		result.Movements = append(result.Movements, movement)
	}

	// Items without batch tracking move on the ledger alone, costed at the
	// running average.
	if len(draws) == 0 {
		movement := StockMovement{
			ItemID:         input.ItemID,
			SrcWarehouseID: input.WarehouseID,
			Type:           mvType,
			Quantity:       qty,
			UnitCost:       level.AvgCost,
			TotalCost:      MovementTotal(qty, level.AvgCost),
			RefType:        input.RefType,
			RefID:          input.RefID,
			Reason:         input.Reason,
			ActorID:        input.ActorID,
			CreatedAt:      now,
		}
		id, err := tx.InsertMovement(ctx, movement)
		if err != nil {
			return ConsumeResult{}, err
		}
		movement.ID = id
		result.Movements = append(result.Movements, movement)
	}

	level.Quantity = RoundQty(level.Quantity.Sub(qty))
	level.UpdatedAt = now
	if err := tx.UpsertLevel(ctx, level); err != nil {
		return ConsumeResult{}, err
	}
	result.Level = level
	return result, nil
}

// WasteInput describes a shrinkage record.
type WasteInput struct {
	ItemID      int64
	WarehouseID int64
	BatchID     int64
	Type        WasteType
	Quantity    decimal.Decimal
	Reason      string
	ActorID     int64
}

// WasteResult pairs the waste record with its movement.
type WasteResult struct {
	Level    StockLevel
	Record   WasteRecord
	Movement StockMovement
}

// RecordWaste decrements batch (when given) and ledger by the same quantity
// and emits exactly one waste record plus one WASTE movement.
func (s *Service) RecordWaste(ctx context.Context, input WasteInput) (WasteResult, error) {
	var result WasteResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		result, err = applyWaste(ctx, tx, input)
		return err
	})
	if err != nil {
		return WasteResult{}, err
	}
	s.recordAudit(ctx, input.ActorID, "stock:waste", input.ItemID, map[string]any{
		"warehouse_id": input.WarehouseID,
		"waste_type":   string(input.Type),
		"qty":          input.Quantity.String(),
	})
	return result, nil
}

func applyWaste(ctx context.Context, tx TxRepository, input WasteInput) (WasteResult, error) {
	if input.ItemID == 0 || input.WarehouseID == 0 {
		return WasteResult{}, errValidation("item and warehouse required")
	}
	if !input.Type.Valid() {
		return WasteResult{}, errValidation("waste type %q not permitted", input.Type)
	}
	if !input.Quantity.IsPositive() {
		return WasteResult{}, errValidation("quantity must be positive")
	}
	if input.Reason == "" {
		return WasteResult{}, errValidation("reason required")
	}

	now := time.Now().UTC()
	qty := RoundQty(input.Quantity)

	level, err := tx.GetLevelForUpdate(ctx, input.ItemID, input.WarehouseID)
	if err != nil {
		if errors.Is(err, ErrLevelNotFound) {
			return WasteResult{}, errInsufficient("no stock for item %d in warehouse %d", input.ItemID, input.WarehouseID)
		}
		return WasteResult{}, err
	}
	if level.Quantity.LessThan(qty) {
		return WasteResult{}, errInsufficient("requested %s, ledger holds %s", qty, level.Quantity)
	}

	unitCost := level.AvgCost
	var batch *StockBatch
	if input.BatchID != 0 {
		b, err := tx.GetBatchForUpdate(ctx, input.BatchID)
		if err != nil {
			return WasteResult{}, err
		}
		if b.ItemID != input.ItemID || b.WarehouseID != input.WarehouseID {
			return WasteResult{}, errValidation("batch %d does not belong to item %d in warehouse %d", b.ID, input.ItemID, input.WarehouseID)
		}
		// The expiry sweep removes flagged batches from the ledger partition;
		// past that point a write-off would double count.
		if b.IsExpired {
			return WasteResult{}, errInvalidState("batch %s already marked expired", b.BatchNumber)
		}
		if b.Quantity.LessThan(qty) {
			return WasteResult{}, errInsufficient("batch %s holds %s, requested %s", b.BatchNumber, b.Quantity, qty)
		}
		unitCost = b.UnitCost
		batch = &b
	}

	if batch != nil {
		if err := tx.SetBatchQuantity(ctx, batch.ID, RoundQty(batch.Quantity.Sub(qty))); err != nil {
			return WasteResult{}, err
		}
	}
	level.Quantity = RoundQty(level.Quantity.Sub(qty))
	level.UpdatedAt = now
	if err := tx.UpsertLevel(ctx, level); err != nil {
		return WasteResult{}, err
	}

	movement := StockMovement{
		ItemID:         input.ItemID,
		SrcWarehouseID: input.WarehouseID,
		BatchID:        input.BatchID,
		Type:           MovementWaste,
		Quantity:       qty,
		UnitCost:       unitCost,
		TotalCost:      MovementTotal(qty, unitCost),
		RefType:        "WASTE_RECORD",
		Reason:         input.Reason,
		ActorID:        input.ActorID,
		CreatedAt:      now,
	}
	mvID, err := tx.InsertMovement(ctx, movement)
	if err != nil {
		return WasteResult{}, err
	}
	movement.ID = mvID

	record := WasteRecord{
		ItemID:      input.ItemID,
		WarehouseID: input.WarehouseID,
		BatchID:     input.BatchID,
		Type:        input.Type,
		Quantity:    qty,
		UnitCost:    unitCost,
		TotalCost:   MovementTotal(qty, unitCost),
		Reason:      input.Reason,
		RecordedBy:  input.ActorID,
		RecordedAt:  now,
	}
	recID, err := tx.InsertWasteRecord(ctx, record)
	if err != nil {
		return WasteResult{}, err
	}
	record.ID = recID

	return WasteResult{Level: level, Record: record, Movement: movement}, nil
}

// TransferInput moves ledger stock between two warehouses of one property.
type TransferInput struct {
	ItemID         int64
	SrcWarehouseID int64
	DstWarehouseID int64
	Quantity       decimal.Decimal
	RefType        string
	RefID          string
	Reason         string
	ActorID        int64
}

// TransferResult reports both sides of the transfer.
type TransferResult struct {
	Source      StockLevel
	Destination StockLevel
	Out         StockMovement
	In          StockMovement
}

// Transfer decrements the source ledger and applies the receipt formula at
// the destination; the incoming cost is the source average at transfer time.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	if input.ItemID == 0 || input.SrcWarehouseID == 0 || input.DstWarehouseID == 0 {
		return TransferResult{}, errValidation("item, source and destination warehouse required")
	}
	if input.SrcWarehouseID == input.DstWarehouseID {
		return TransferResult{}, errValidation("source and destination warehouse must differ")
	}
	if !input.Quantity.IsPositive() {
		return TransferResult{}, errValidation("quantity must be positive")
	}

	// Paired movements share one reference so reconciliation can match the
	// OUT row with its IN counterpart.
	if input.RefID == "" {
		input.RefType = "TRANSFER"
		input.RefID = uuid.NewString()
	}

	var result TransferResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		now := time.Now().UTC()
		qty := RoundQty(input.Quantity)

		dstWarehouse, err := tx.GetWarehouse(ctx, input.DstWarehouseID)
		if err != nil {
			return err
		}
		if !dstWarehouse.Active {
			return errValidation("warehouse %d is inactive", dstWarehouse.ID)
		}

		src, err := tx.GetLevelForUpdate(ctx, input.ItemID, input.SrcWarehouseID)
		if err != nil {
			if errors.Is(err, ErrLevelNotFound) {
				return errInsufficient("no stock for item %d in warehouse %d", input.ItemID, input.SrcWarehouseID)
			}
			return err
		}
		if src.Quantity.LessThan(qty) {
			return errInsufficient("requested %s, source holds %s", qty, src.Quantity)
		}
		cost := src.AvgCost

		src.Quantity = RoundQty(src.Quantity.Sub(qty))
		src.UpdatedAt = now
		if err := tx.UpsertLevel(ctx, src); err != nil {
			return err
		}

		dst, err := tx.GetLevelForUpdate(ctx, input.ItemID, input.DstWarehouseID)
		if err != nil && !errors.Is(err, ErrLevelNotFound) {
			return err
		}
		if errors.Is(err, ErrLevelNotFound) {
			dst = StockLevel{ItemID: input.ItemID, WarehouseID: input.DstWarehouseID}
		}
		dst.AvgCost = BlendAvgCost(dst.Quantity, dst.AvgCost, qty, cost)
		dst.Quantity = RoundQty(dst.Quantity.Add(qty))
		dst.UpdatedAt = now
		if err := tx.UpsertLevel(ctx, dst); err != nil {
			return err
		}

		out := StockMovement{
			ItemID:         input.ItemID,
			SrcWarehouseID: input.SrcWarehouseID,
			DstWarehouseID: input.DstWarehouseID,
			Type:           MovementTransferOut,
			Quantity:       qty,
			UnitCost:       cost,
			TotalCost:      MovementTotal(qty, cost),
			RefType:        input.RefType,
			RefID:          input.RefID,
			Reason:         input.Reason,
			ActorID:        input.ActorID,
			CreatedAt:      now,
		}
		outID, err := tx.InsertMovement(ctx, out)
		if err != nil {
			return err
		}
		out.ID = outID

		in := out
		in.Type = MovementTransferIn
		inID, err := tx.InsertMovement(ctx, in)
		if err != nil {
			return err
		}
		in.ID = inID

		result = TransferResult{Source: src, Destination: dst, Out: out, In: in}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	s.recordAudit(ctx, input.ActorID, "stock:transfer", input.ItemID, map[string]any{
		"src": input.SrcWarehouseID,
		"dst": input.DstWarehouseID,
		"qty": input.Quantity.String(),
	})
	return result, nil
}

// AdjustInput sets the ledger quantity directly (cycle-count correction).
type AdjustInput struct {
	ItemID      int64
	WarehouseID int64
	NewQuantity decimal.Decimal
	Reason      string
	ActorID     int64
}

// AdjustResult reports the correction applied.
type AdjustResult struct {
	Level    StockLevel
	Delta    decimal.Decimal
	Movement *StockMovement
}

// Adjust sets the quantity to NewQuantity and emits one ADJUSTMENT movement
// for the signed delta. Average cost is untouched on decreases; increases
// blend at the current average since no external cost is known.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (AdjustResult, error) {
	if input.ItemID == 0 || input.WarehouseID == 0 {
		return AdjustResult{}, errValidation("item and warehouse required")
	}
	if input.NewQuantity.IsNegative() {
		return AdjustResult{}, errValidation("quantity must not be negative")
	}

	var result AdjustResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		now := time.Now().UTC()
		newQty := RoundQty(input.NewQuantity)

		level, err := tx.GetLevelForUpdate(ctx, input.ItemID, input.WarehouseID)
		if err != nil && !errors.Is(err, ErrLevelNotFound) {
			return err
		}
		if errors.Is(err, ErrLevelNotFound) {
			level = StockLevel{ItemID: input.ItemID, WarehouseID: input.WarehouseID}
		}

		delta := newQty.Sub(level.Quantity)
		if delta.IsZero() {
			result = AdjustResult{Level: level, Delta: delta}
			return nil
		}
		if delta.IsPositive() {
			level.AvgCost = BlendAvgCost(level.Quantity, level.AvgCost, delta, level.AvgCost)
		}
		level.Quantity = newQty
		level.UpdatedAt = now
		if err := tx.UpsertLevel(ctx, level); err != nil {
			return err
		}

		movement := StockMovement{
			ItemID:    input.ItemID,
			Type:      MovementAdjustment,
			Quantity:  delta.Abs(),
			UnitCost:  level.AvgCost,
			TotalCost: MovementTotal(delta.Abs(), level.AvgCost),
			Reason:    input.Reason,
			ActorID:   input.ActorID,
			CreatedAt: now,
		}
		if delta.IsPositive() {
			movement.DstWarehouseID = input.WarehouseID
		} else {
			movement.SrcWarehouseID = input.WarehouseID
		}
		mvID, err := tx.InsertMovement(ctx, movement)
		if err != nil {
			return err
		}
		movement.ID = mvID

		result = AdjustResult{Level: level, Delta: delta, Movement: &movement}
		return nil
	})
	if err != nil {
		return AdjustResult{}, err
	}
	s.recordAudit(ctx, input.ActorID, "stock:adjust", input.ItemID, map[string]any{
		"warehouse_id": input.WarehouseID,
		"new_qty":      input.NewQuantity.String(),
		"delta":        result.Delta.String(),
	})
	return result, nil
}

// SweepExpired flips IsExpired on every dated batch in the warehouse whose
// expiration is behind now. Re-running has no effect on flipped rows.
func (s *Service) SweepExpired(ctx context.Context, warehouseID int64, actorID int64) (int, error) {
	if warehouseID == 0 {
		return 0, errValidation("warehouse required")
	}
	flipped := 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		now := time.Now().UTC()
		candidates, err := tx.ListExpiryCandidatesForUpdate(ctx, warehouseID, now)
		if err != nil {
			return err
		}
		for _, batch := range candidates {
			if batch.IsExpired {
				continue
			}
			if err := tx.MarkBatchExpired(ctx, batch.ID); err != nil {
				return err
			}
			flipped++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if flipped > 0 {
		s.recordAudit(ctx, actorID, "stock:expiry_sweep", warehouseID, map[string]any{"batches": flipped})
	}
	return flipped, nil
}

// Level returns the ledger row for the pair.
func (s *Service) Level(ctx context.Context, itemID, warehouseID int64) (StockLevel, error) {
	if itemID == 0 || warehouseID == 0 {
		return StockLevel{}, errValidation("item and warehouse required")
	}
	return s.repo.GetLevel(ctx, itemID, warehouseID)
}

// AvailableBatchQuantity sums batch quantities for the pair. Expired batches
// are excluded unless includeExpired is set.
func (s *Service) AvailableBatchQuantity(ctx context.Context, itemID, warehouseID int64, includeExpired bool) (decimal.Decimal, error) {
	batches, err := s.repo.ListBatches(ctx, itemID, warehouseID, true)
	if err != nil {
		return decimal.Zero, err
	}
	if includeExpired {
		total := decimal.Zero
		for _, b := range batches {
			total = total.Add(b.Quantity)
		}
		return total, nil
	}
	return AvailableQuantity(batches, time.Now().UTC()), nil
}

// NextBatch returns the batch FEFO would consume next, or nil.
func (s *Service) NextBatch(ctx context.Context, itemID, warehouseID int64) (*StockBatch, error) {
	batches, err := s.repo.ListBatches(ctx, itemID, warehouseID, true)
	if err != nil {
		return nil, err
	}
	return NextBatchFEFO(batches, time.Now().UTC()), nil
}

// Batches lists lots for the pair.
func (s *Service) Batches(ctx context.Context, itemID, warehouseID int64, includeExpired bool) ([]StockBatch, error) {
	return s.repo.ListBatches(ctx, itemID, warehouseID, includeExpired)
}

// ExpiringBatches lists batches expiring within daysThreshold days, skipping
// batches already expired.
func (s *Service) ExpiringBatches(ctx context.Context, warehouseID int64, daysThreshold int) ([]StockBatch, error) {
	if daysThreshold < 0 {
		return nil, errValidation("days threshold must not be negative")
	}
	batches, err := s.repo.ListWarehouseBatches(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	window := time.Duration(daysThreshold) * 24 * time.Hour
	var expiring []StockBatch
	for _, b := range batches {
		if b.Quantity.IsPositive() && b.ExpiresWithin(now, window) {
			expiring = append(expiring, b)
		}
	}
	return expiring, nil
}

// Movements queries the movement log.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	return s.repo.ListMovements(ctx, filter)
}

// LowStockAlerts lists pairs at or below par level.
func (s *Service) LowStockAlerts(ctx context.Context, scope shared.ScopeFilter) ([]LowStockAlert, error) {
	return s.repo.LowStock(ctx, scope)
}

// Valuation prices current ledger rows at their average cost.
func (s *Service) Valuation(ctx context.Context, scope shared.ScopeFilter, warehouseID int64) ([]ValuationEntry, error) {
	return s.repo.Valuation(ctx, scope, warehouseID)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}
