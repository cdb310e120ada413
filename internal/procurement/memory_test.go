package procurement

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/innkeep-pms/innkeep/internal/inventory"
)

// memoryRepo implements RepositoryPort against maps, including enough of the
// stock store for receipts to post. WithTx clones state and commits only on
// success, mirroring the transactional contract.
type memoryRepo struct {
	items      map[int64]inventory.ItemRef
	warehouses map[int64]inventory.WarehouseRef
	levels     map[string]inventory.StockLevel
	batches    map[int64]inventory.StockBatch
	movements  []inventory.StockMovement
	pos        map[int64]PurchaseOrder
	lines      map[int64]POLine
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items:      make(map[int64]inventory.ItemRef),
		warehouses: make(map[int64]inventory.WarehouseRef),
		levels:     make(map[string]inventory.StockLevel),
		batches:    make(map[int64]inventory.StockBatch),
		pos:        make(map[int64]PurchaseOrder),
		lines:      make(map[int64]POLine),
	}
}

func levelKey(itemID, warehouseID int64) string {
	return fmt.Sprintf("%d:%d", itemID, warehouseID)
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
	for k, v := range r.pos {
		clone.pos[k] = v
	}
	for k, v := range r.lines {
		clone.lines[k] = v
	}
	clone.movements = append([]inventory.StockMovement(nil), r.movements...)
	clone.nextID = r.nextID
	return clone
}

func (r *memoryRepo) restore(from *memoryRepo) {
	r.items = from.items
	r.warehouses = from.warehouses
	r.levels = from.levels
	r.batches = from.batches
	r.movements = from.movements
	r.pos = from.pos
	r.lines = from.lines
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

func (r *memoryRepo) GetPO(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, ok := r.pos[id]
	if !ok {
		return PurchaseOrder{}, errNotFound("purchase order %d", id)
	}
	return po, nil
}

func (r *memoryRepo) GetPOWithLines(ctx context.Context, id int64) (POWithLines, error) {
	po, err := r.GetPO(ctx, id)
	if err != nil {
		return POWithLines{}, err
	}
	detail := POWithLines{PurchaseOrder: po, Total: decimal.Zero}
	for _, l := range r.lines {
		if l.POID == id {
			detail.Lines = append(detail.Lines, l)
			detail.Total = detail.Total.Add(l.LineTotal())
		}
	}
	sort.Slice(detail.Lines, func(i, j int) bool { return detail.Lines[i].ID < detail.Lines[j].ID })
	return detail, nil
}

func (r *memoryRepo) ListPOs(ctx context.Context, req ListPOsRequest) ([]PurchaseOrder, error) {
	var pos []PurchaseOrder
	for _, po := range r.pos {
		if req.Status != "" && po.Status != req.Status {
			continue
		}
		if req.SupplierID != 0 && po.SupplierID != req.SupplierID {
			continue
		}
		if req.PropertyID != 0 && po.PropertyID != req.PropertyID {
			continue
		}
		pos = append(pos, po)
	}
	return pos, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (tx *memoryTx) GetPOForUpdate(ctx context.Context, id int64) (PurchaseOrder, error) {
	return tx.repo.GetPO(ctx, id)
}

func (tx *memoryTx) ListLinesForUpdate(ctx context.Context, poID int64) ([]POLine, error) {
	var lines []POLine
	for _, l := range tx.repo.lines {
		if l.POID == poID {
			lines = append(lines, l)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

func (tx *memoryTx) MaxPOSequence(ctx context.Context, prefix string) (int, error) {
	maxSeq := 0
	for _, po := range tx.repo.pos {
		if !strings.HasPrefix(po.Number, prefix) {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimPrefix(po.Number, prefix))
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq, nil
}

func (tx *memoryTx) InsertPO(ctx context.Context, po PurchaseOrder) (int64, error) {
	tx.repo.nextID++
	po.ID = tx.repo.nextID
	tx.repo.pos[po.ID] = po
	return po.ID, nil
}

func (tx *memoryTx) InsertLine(ctx context.Context, line POLine) (int64, error) {
	tx.repo.nextID++
	line.ID = tx.repo.nextID
	line.ReceivedQty = decimal.Zero
	tx.repo.lines[line.ID] = line
	return line.ID, nil
}

func (tx *memoryTx) SetLineReceived(ctx context.Context, lineID int64, qty decimal.Decimal) error {
	l, ok := tx.repo.lines[lineID]
	if !ok {
		return errNotFound("purchase order line %d", lineID)
	}
	l.ReceivedQty = qty
	tx.repo.lines[lineID] = l
	return nil
}

func (tx *memoryTx) SetPOStatus(ctx context.Context, poID int64, status POStatus, now time.Time) error {
	po, ok := tx.repo.pos[poID]
	if !ok {
		return errNotFound("purchase order %d", poID)
	}
	po.Status = status
	po.UpdatedAt = now
	tx.repo.pos[poID] = po
	return nil
}

// --- stock side, enough for ApplyReceipt ---

func (tx *memoryTx) GetItem(ctx context.Context, itemID int64) (inventory.ItemRef, error) {
	item, ok := tx.repo.items[itemID]
	if !ok {
		return inventory.ItemRef{}, errNotFound("item %d", itemID)
	}
	return item, nil
}

func (tx *memoryTx) GetWarehouse(ctx context.Context, warehouseID int64) (inventory.WarehouseRef, error) {
	wh, ok := tx.repo.warehouses[warehouseID]
	if !ok {
		return inventory.WarehouseRef{}, errNotFound("warehouse %d", warehouseID)
	}
	return wh, nil
}

func (tx *memoryTx) GetLevelForUpdate(ctx context.Context, itemID, warehouseID int64) (inventory.StockLevel, error) {
	level, ok := tx.repo.levels[levelKey(itemID, warehouseID)]
	if !ok {
		return inventory.StockLevel{ItemID: itemID, WarehouseID: warehouseID}, inventory.ErrLevelNotFound
	}
	return level, nil
}

func (tx *memoryTx) UpsertLevel(ctx context.Context, level inventory.StockLevel) error {
	tx.repo.levels[levelKey(level.ItemID, level.WarehouseID)] = level
	return nil
}

func (tx *memoryTx) ListBatchesForUpdate(ctx context.Context, itemID, warehouseID int64) ([]inventory.StockBatch, error) {
	var batches []inventory.StockBatch
	for _, b := range tx.repo.batches {
		if b.ItemID == itemID && b.WarehouseID == warehouseID {
			batches = append(batches, b)
		}
	}
	return batches, nil
}

func (tx *memoryTx) GetBatchForUpdate(ctx context.Context, batchID int64) (inventory.StockBatch, error) {
	b, ok := tx.repo.batches[batchID]
	if !ok {
		return inventory.StockBatch{}, errNotFound("batch %d", batchID)
	}
	return b, nil
}

func (tx *memoryTx) InsertBatch(ctx context.Context, batch inventory.StockBatch) (int64, error) {
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

func (tx *memoryTx) ListExpiryCandidatesForUpdate(ctx context.Context, warehouseID int64, now time.Time) ([]inventory.StockBatch, error) {
	return nil, nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, movement inventory.StockMovement) (int64, error) {
	tx.repo.nextID++
	movement.ID = tx.repo.nextID
	tx.repo.movements = append(tx.repo.movements, movement)
	return movement.ID, nil
}

func (tx *memoryTx) InsertWasteRecord(ctx context.Context, record inventory.WasteRecord) (int64, error) {
	tx.repo.nextID++
	return tx.repo.nextID, nil
}
