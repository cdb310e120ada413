package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/innkeep-pms/innkeep/internal/shared"
)

// memoryRepo implements RepositoryPort against maps. WithTx clones state and
// commits only on success, mirroring the transactional contract.
type memoryRepo struct {
	items      map[int64]ItemRef
	warehouses map[int64]WarehouseRef
	levels     map[string]StockLevel
	batches    map[int64]StockBatch
	movements  []StockMovement
	wastes     []WasteRecord
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items:      make(map[int64]ItemRef),
		warehouses: make(map[int64]WarehouseRef),
		levels:     make(map[string]StockLevel),
		batches:    make(map[int64]StockBatch),
	}
}

func levelKey(itemID, warehouseID int64) string {
	return fmt.Sprintf("%d:%d", itemID, warehouseID)
}

func (r *memoryRepo) addItem(item ItemRef) {
	r.items[item.ID] = item
}

func (r *memoryRepo) addWarehouse(wh WarehouseRef) {
	r.warehouses[wh.ID] = wh
}

func (r *memoryRepo) snapshot() *memoryRepo {
	clone := newMemoryRepo()
	for k, v := range r.items {
		clone.items[k] = v
	}
	for k, v := range r.warehouses {
		clone.warehouses[k] = v
	}
	for k, v := range r.levels {
		clone.levels[k] = v
	}
	for k, v := range r.batches {
		clone.batches[k] = v
	}
	clone.movements = append([]StockMovement(nil), r.movements...)
	clone.wastes = append([]WasteRecord(nil), r.wastes...)
	clone.nextID = r.nextID
	return clone
}

func (r *memoryRepo) restore(from *memoryRepo) {
	r.items = from.items
	r.warehouses = from.warehouses
	r.levels = from.levels
	r.batches = from.batches
	r.movements = from.movements
	r.wastes = from.wastes
	r.nextID = from.nextID
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	work := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: work}); err != nil {
		return err
	}
	r.restore(work)
	return nil
}

func (r *memoryRepo) GetLevel(ctx context.Context, itemID, warehouseID int64) (StockLevel, error) {
	level, ok := r.levels[levelKey(itemID, warehouseID)]
	if !ok {
		return StockLevel{}, errNotFound("stock level for item %d in warehouse %d", itemID, warehouseID)
	}
	return level, nil
}

func (r *memoryRepo) ListBatches(ctx context.Context, itemID, warehouseID int64, includeExpired bool) ([]StockBatch, error) {
	now := time.Now().UTC()
	var batches []StockBatch
	for _, b := range r.batches {
		if b.ItemID != itemID || b.WarehouseID != warehouseID {
			continue
		}
		if !includeExpired && b.Expired(now) {
			continue
		}
		batches = append(batches, b)
	}
	sortFEFO(batches)
	return batches, nil
}

func (r *memoryRepo) ListWarehouseBatches(ctx context.Context, warehouseID int64) ([]StockBatch, error) {
	var batches []StockBatch
	for _, b := range r.batches {
		if b.WarehouseID == warehouseID {
			batches = append(batches, b)
		}
	}
	sortFEFO(batches)
	return batches, nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	var movements []StockMovement
	for _, m := range r.movements {
		if filter.ItemID != 0 && m.ItemID != filter.ItemID {
			continue
		}
		if filter.WarehouseID != 0 && m.SrcWarehouseID != filter.WarehouseID && m.DstWarehouseID != filter.WarehouseID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		movements = append(movements, m)
	}
	return movements, nil
}

func (r *memoryRepo) LowStock(ctx context.Context, scope shared.ScopeFilter) ([]LowStockAlert, error) {
	var alerts []LowStockAlert
	for _, level := range r.levels {
		item, ok := r.items[level.ItemID]
		if !ok || !item.Active || !item.ParLevel.IsPositive() {
			continue
		}
		if !scope.Allows(item.PropertyID) {
			continue
		}
		if level.Quantity.LessThanOrEqual(item.ParLevel) {
			alerts = append(alerts, LowStockAlert{
				ItemID:      item.ID,
				ItemCode:    item.Code,
				ItemName:    item.Name,
				PropertyID:  item.PropertyID,
				WarehouseID: level.WarehouseID,
				Quantity:    level.Quantity,
				ParLevel:    item.ParLevel,
			})
		}
	}
	return alerts, nil
}

func (r *memoryRepo) Valuation(ctx context.Context, scope shared.ScopeFilter, warehouseID int64) ([]ValuationEntry, error) {
	var entries []ValuationEntry
	for _, level := range r.levels {
		item, ok := r.items[level.ItemID]
		if !ok || !scope.Allows(item.PropertyID) {
			continue
		}
		if warehouseID != 0 && level.WarehouseID != warehouseID {
			continue
		}
		entries = append(entries, ValuationEntry{
			ItemID:      item.ID,
			ItemCode:    item.Code,
			ItemName:    item.Name,
			WarehouseID: level.WarehouseID,
			Quantity:    level.Quantity,
			AvgCost:     level.AvgCost,
			TotalValue:  level.Value(),
		})
	}
	return entries, nil
}

func (r *memoryRepo) MovementCostTotals(ctx context.Context, warehouseID int64, from, to time.Time) (CostTotals, error) {
	totals := CostTotals{Consumption: decimal.Zero, Waste: decimal.Zero}
	for _, m := range r.movements {
		if m.SrcWarehouseID != warehouseID {
			continue
		}
		if !from.IsZero() && m.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !m.CreatedAt.Before(to) {
			continue
		}
		switch m.Type {
		case MovementConsumption:
			totals.Consumption = totals.Consumption.Add(m.TotalCost)
		case MovementWaste:
			totals.Waste = totals.Waste.Add(m.TotalCost)
		}
	}
	return totals, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (tx *memoryTx) GetItem(ctx context.Context, itemID int64) (ItemRef, error) {
	item, ok := tx.repo.items[itemID]
	if !ok {
		return ItemRef{}, errNotFound("item %d", itemID)
	}
	return item, nil
}

func (tx *memoryTx) GetWarehouse(ctx context.Context, warehouseID int64) (WarehouseRef, error) {
	wh, ok := tx.repo.warehouses[warehouseID]
	if !ok {
		return WarehouseRef{}, errNotFound("warehouse %d", warehouseID)
	}
	return wh, nil
}

func (tx *memoryTx) GetLevelForUpdate(ctx context.Context, itemID, warehouseID int64) (StockLevel, error) {
	level, ok := tx.repo.levels[levelKey(itemID, warehouseID)]
	if !ok {
		return StockLevel{ItemID: itemID, WarehouseID: warehouseID}, ErrLevelNotFound
	}
	return level, nil
}

func (tx *memoryTx) UpsertLevel(ctx context.Context, level StockLevel) error {
	tx.repo.levels[levelKey(level.ItemID, level.WarehouseID)] = level
	return nil
}

func (tx *memoryTx) ListBatchesForUpdate(ctx context.Context, itemID, warehouseID int64) ([]StockBatch, error) {
	var batches []StockBatch
	for _, b := range tx.repo.batches {
		if b.ItemID == itemID && b.WarehouseID == warehouseID {
			batches = append(batches, b)
		}
	}
	sortFEFO(batches)
	return batches, nil
}

func (tx *memoryTx) GetBatchForUpdate(ctx context.Context, batchID int64) (StockBatch, error) {
	b, ok := tx.repo.batches[batchID]
	if !ok {
		return StockBatch{}, errNotFound("batch %d", batchID)
	}
	return b, nil
}

func (tx *memoryTx) InsertBatch(ctx context.Context, batch StockBatch) (int64, error) {
	for _, existing := range tx.repo.batches {
		if existing.ItemID == batch.ItemID && existing.WarehouseID == batch.WarehouseID && existing.BatchNumber == batch.BatchNumber {
			return 0, errConstraint("batch %q already exists for item %d in warehouse %d", batch.BatchNumber, batch.ItemID, batch.WarehouseID)
		}
	}
	tx.repo.nextID++
	batch.ID = tx.repo.nextID
	tx.repo.batches[batch.ID] = batch
	return batch.ID, nil
}

func (tx *memoryTx) SetBatchQuantity(ctx context.Context, batchID int64, qty decimal.Decimal) error {
	b, ok := tx.repo.batches[batchID]
	if !ok {
		return errNotFound("batch %d", batchID)
	}
	b.Quantity = qty
	tx.repo.batches[batchID] = b
	return nil
}

func (tx *memoryTx) MarkBatchExpired(ctx context.Context, batchID int64) error {
	b, ok := tx.repo.batches[batchID]
	if !ok {
		return errNotFound("batch %d", batchID)
	}
	b.IsExpired = true
	tx.repo.batches[batchID] = b
	return nil
}

func (tx *memoryTx) ListExpiryCandidatesForUpdate(ctx context.Context, warehouseID int64, now time.Time) ([]StockBatch, error) {
	var batches []StockBatch
	for _, b := range tx.repo.batches {
		if b.WarehouseID == warehouseID && !b.IsExpired && b.ExpirationDate != nil && b.ExpirationDate.Before(now) {
			batches = append(batches, b)
		}
	}
	return batches, nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, movement StockMovement) (int64, error) {
	tx.repo.nextID++
	movement.ID = tx.repo.nextID
	tx.repo.movements = append(tx.repo.movements, movement)
	return movement.ID, nil
}

func (tx *memoryTx) InsertWasteRecord(ctx context.Context, record WasteRecord) (int64, error) {
	tx.repo.nextID++
	record.ID = tx.repo.nextID
	tx.repo.wastes = append(tx.repo.wastes, record)
	return record.ID, nil
}
