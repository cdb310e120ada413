package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/innkeep-pms/innkeep/internal/shared"
)

// ErrLevelNotFound indicates a missing ledger row for the pair.
var ErrLevelNotFound = errors.New("inventory: stock level not found")

// TxRepository exposes transactional operations used by orchestrators. The
// purchase-order receiving flow embeds this interface so a receipt and its
// PO line updates share one transaction.
type TxRepository interface {
	GetItem(ctx context.Context, itemID int64) (ItemRef, error)
	GetWarehouse(ctx context.Context, warehouseID int64) (WarehouseRef, error)
	GetLevelForUpdate(ctx context.Context, itemID, warehouseID int64) (StockLevel, error)
	UpsertLevel(ctx context.Context, level StockLevel) error
	ListBatchesForUpdate(ctx context.Context, itemID, warehouseID int64) ([]StockBatch, error)
	GetBatchForUpdate(ctx context.Context, batchID int64) (StockBatch, error)
	InsertBatch(ctx context.Context, batch StockBatch) (int64, error)
	SetBatchQuantity(ctx context.Context, batchID int64, qty decimal.Decimal) error
	MarkBatchExpired(ctx context.Context, batchID int64) error
	ListExpiryCandidatesForUpdate(ctx context.Context, warehouseID int64, now time.Time) ([]StockBatch, error)
	InsertMovement(ctx context.Context, movement StockMovement) (int64, error)
	InsertWasteRecord(ctx context.Context, record WasteRecord) (int64, error)
}

// Repository persists stock data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open transaction as a TxRepository. Orchestrators
// in other modules use it to post stock operations inside their own
// transactions.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{tx: tx}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *txRepo) GetItem(ctx context.Context, itemID int64) (ItemRef, error) {
	var item ItemRef
	err := r.tx.QueryRow(ctx,
		`SELECT id, property_id, code, name, unit, par_level, is_consignment, active
		   FROM stock_items WHERE id=$1`, itemID).
		Scan(&item.ID, &item.PropertyID, &item.Code, &item.Name, &item.Unit, &item.ParLevel, &item.Consignment, &item.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ItemRef{}, errNotFound("item %d", itemID)
		}
		return ItemRef{}, err
	}
	return item, nil
}

func (r *txRepo) GetWarehouse(ctx context.Context, warehouseID int64) (WarehouseRef, error) {
	var wh WarehouseRef
	err := r.tx.QueryRow(ctx,
		`SELECT id, property_id, name, active FROM warehouses WHERE id=$1`, warehouseID).
		Scan(&wh.ID, &wh.PropertyID, &wh.Name, &wh.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WarehouseRef{}, errNotFound("warehouse %d", warehouseID)
		}
		return WarehouseRef{}, err
	}
	return wh, nil
}

func (r *txRepo) GetLevelForUpdate(ctx context.Context, itemID, warehouseID int64) (StockLevel, error) {
	var level StockLevel
	err := r.tx.QueryRow(ctx,
		`SELECT item_id, warehouse_id, quantity, avg_cost, updated_at
		   FROM stock_levels WHERE item_id=$1 AND warehouse_id=$2 FOR UPDATE`,
		itemID, warehouseID).
		Scan(&level.ItemID, &level.WarehouseID, &level.Quantity, &level.AvgCost, &level.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockLevel{ItemID: itemID, WarehouseID: warehouseID}, ErrLevelNotFound
		}
		return StockLevel{}, err
	}
	return level, nil
}

func (r *txRepo) UpsertLevel(ctx context.Context, level StockLevel) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO stock_levels (item_id, warehouse_id, quantity, avg_cost, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (item_id, warehouse_id)
		 DO UPDATE SET quantity=EXCLUDED.quantity, avg_cost=EXCLUDED.avg_cost, updated_at=EXCLUDED.updated_at`,
		level.ItemID, level.WarehouseID, level.Quantity, level.AvgCost, level.UpdatedAt)
	return err
}

const batchColumns = `id, item_id, warehouse_id, batch_number, quantity, unit_cost, expiration_date, is_expired, received_at`

func scanBatch(row pgx.Row) (StockBatch, error) {
	var b StockBatch
	var expiration pgtype.Timestamptz
	err := row.Scan(&b.ID, &b.ItemID, &b.WarehouseID, &b.BatchNumber, &b.Quantity, &b.UnitCost, &expiration, &b.IsExpired, &b.ReceivedAt)
	if err != nil {
		return StockBatch{}, err
	}
	if expiration.Valid {
		t := expiration.Time
		b.ExpirationDate = &t
	}
	return b, nil
}

func collectBatches(rows pgx.Rows) ([]StockBatch, error) {
	defer rows.Close()
	var batches []StockBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (r *txRepo) ListBatchesForUpdate(ctx context.Context, itemID, warehouseID int64) ([]StockBatch, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT `+batchColumns+` FROM stock_batches
		  WHERE item_id=$1 AND warehouse_id=$2
		  ORDER BY expiration_date NULLS LAST, received_at, id
		  FOR UPDATE`, itemID, warehouseID)
	if err != nil {
		return nil, err
	}
	return collectBatches(rows)
}

func (r *txRepo) GetBatchForUpdate(ctx context.Context, batchID int64) (StockBatch, error) {
	b, err := scanBatch(r.tx.QueryRow(ctx,
		`SELECT `+batchColumns+` FROM stock_batches WHERE id=$1 FOR UPDATE`, batchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockBatch{}, errNotFound("batch %d", batchID)
		}
		return StockBatch{}, err
	}
	return b, nil
}

func (r *txRepo) InsertBatch(ctx context.Context, batch StockBatch) (int64, error) {
	var expiration pgtype.Timestamptz
	if batch.ExpirationDate != nil {
		expiration = pgtype.Timestamptz{Time: *batch.ExpirationDate, Valid: true}
	}
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO stock_batches (item_id, warehouse_id, batch_number, quantity, unit_cost, expiration_date, is_expired, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		 RETURNING id`,
		batch.ItemID, batch.WarehouseID, batch.BatchNumber, batch.Quantity, batch.UnitCost, expiration, batch.ReceivedAt).
		Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, errConstraint("batch %q already exists for item %d in warehouse %d", batch.BatchNumber, batch.ItemID, batch.WarehouseID)
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepo) SetBatchQuantity(ctx context.Context, batchID int64, qty decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE stock_batches SET quantity=$2 WHERE id=$1`, batchID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errNotFound("batch %d", batchID)
	}
	return nil
}

func (r *txRepo) MarkBatchExpired(ctx context.Context, batchID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE stock_batches SET is_expired=TRUE WHERE id=$1`, batchID)
	return err
}

func (r *txRepo) ListExpiryCandidatesForUpdate(ctx context.Context, warehouseID int64, now time.Time) ([]StockBatch, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT `+batchColumns+` FROM stock_batches
		  WHERE warehouse_id=$1 AND is_expired=FALSE AND expiration_date IS NOT NULL AND expiration_date < $2
		  ORDER BY id
		  FOR UPDATE`, warehouseID, now)
	if err != nil {
		return nil, err
	}
	return collectBatches(rows)
}

func (r *txRepo) InsertMovement(ctx context.Context, movement StockMovement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO stock_movements (item_id, src_warehouse_id, dst_warehouse_id, batch_id, movement_type, quantity, unit_cost, total_cost, ref_type, ref_id, reason, actor_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id`,
		movement.ItemID,
		pgtype.Int8{Int64: movement.SrcWarehouseID, Valid: movement.SrcWarehouseID != 0},
		pgtype.Int8{Int64: movement.DstWarehouseID, Valid: movement.DstWarehouseID != 0},
		pgtype.Int8{Int64: movement.BatchID, Valid: movement.BatchID != 0},
		string(movement.Type),
		movement.Quantity, movement.UnitCost, movement.TotalCost,
		movement.RefType, movement.RefID, movement.Reason,
		pgtype.Int8{Int64: movement.ActorID, Valid: movement.ActorID != 0},
		movement.CreatedAt).
		Scan(&id)
	return id, err
}

func (r *txRepo) InsertWasteRecord(ctx context.Context, record WasteRecord) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO waste_records (item_id, warehouse_id, batch_id, waste_type, quantity, unit_cost, total_cost, reason, recorded_by, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		record.ItemID, record.WarehouseID,
		pgtype.Int8{Int64: record.BatchID, Valid: record.BatchID != 0},
		string(record.Type),
		record.Quantity, record.UnitCost, record.TotalCost,
		record.Reason,
		pgtype.Int8{Int64: record.RecordedBy, Valid: record.RecordedBy != 0},
		record.RecordedAt).
		Scan(&id)
	return id, err
}

// GetLevel returns the ledger row outside a transaction.
func (r *Repository) GetLevel(ctx context.Context, itemID, warehouseID int64) (StockLevel, error) {
	var level StockLevel
	err := r.pool.QueryRow(ctx,
		`SELECT item_id, warehouse_id, quantity, avg_cost, updated_at
		   FROM stock_levels WHERE item_id=$1 AND warehouse_id=$2`,
		itemID, warehouseID).
		Scan(&level.ItemID, &level.WarehouseID, &level.Quantity, &level.AvgCost, &level.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockLevel{}, errNotFound("stock level for item %d in warehouse %d", itemID, warehouseID)
		}
		return StockLevel{}, err
	}
	return level, nil
}

// ListBatches lists lots for a pair, optionally including expired ones.
func (r *Repository) ListBatches(ctx context.Context, itemID, warehouseID int64, includeExpired bool) ([]StockBatch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+batchColumns+` FROM stock_batches
		  WHERE item_id=$1 AND warehouse_id=$2 AND ($3 OR (is_expired=FALSE AND (expiration_date IS NULL OR expiration_date >= NOW())))
		  ORDER BY expiration_date NULLS LAST, received_at, id`,
		itemID, warehouseID, includeExpired)
	if err != nil {
		return nil, err
	}
	return collectBatches(rows)
}

// ListWarehouseBatches lists every batch stored in the warehouse.
func (r *Repository) ListWarehouseBatches(ctx context.Context, warehouseID int64) ([]StockBatch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+batchColumns+` FROM stock_batches
		  WHERE warehouse_id=$1
		  ORDER BY expiration_date NULLS LAST, received_at, id`, warehouseID)
	if err != nil {
		return nil, err
	}
	return collectBatches(rows)
}

// ListMovements queries the movement log.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, item_id, COALESCE(src_warehouse_id, 0), COALESCE(dst_warehouse_id, 0), COALESCE(batch_id, 0),
		        movement_type, quantity, unit_cost, total_cost, ref_type, ref_id, reason, COALESCE(actor_id, 0), created_at
		   FROM stock_movements
		  WHERE ($1::bigint = 0 OR item_id = $1)
		    AND ($2::bigint = 0 OR src_warehouse_id = $2 OR dst_warehouse_id = $2)
		    AND ($3::text = '' OR movement_type = $3)
		    AND ($4::timestamptz IS NULL OR created_at >= $4)
		    AND ($5::timestamptz IS NULL OR created_at < $5)
		  ORDER BY created_at DESC, id DESC
		  LIMIT $6`,
		filter.ItemID, filter.WarehouseID, string(filter.Type),
		pgtype.Timestamptz{Time: filter.From, Valid: !filter.From.IsZero()},
		pgtype.Timestamptz{Time: filter.To, Valid: !filter.To.IsZero()},
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		var mvType string
		if err := rows.Scan(&m.ID, &m.ItemID, &m.SrcWarehouseID, &m.DstWarehouseID, &m.BatchID,
			&mvType, &m.Quantity, &m.UnitCost, &m.TotalCost, &m.RefType, &m.RefID, &m.Reason, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Type = MovementType(mvType)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// LowStock lists pairs whose ledger quantity sits at or below the item par level.
func (r *Repository) LowStock(ctx context.Context, scope shared.ScopeFilter) ([]LowStockAlert, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT i.id, i.code, i.name, i.property_id, l.warehouse_id, l.quantity, i.par_level
		   FROM stock_levels l
		   JOIN stock_items i ON i.id = l.item_id
		  WHERE i.active AND i.par_level > 0 AND l.quantity <= i.par_level
		    AND ($1::bigint IS NULL OR i.property_id = $1)
		  ORDER BY i.code, l.warehouse_id`,
		scope.PropertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var alerts []LowStockAlert
	for rows.Next() {
		var a LowStockAlert
		if err := rows.Scan(&a.ItemID, &a.ItemCode, &a.ItemName, &a.PropertyID, &a.WarehouseID, &a.Quantity, &a.ParLevel); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Valuation prices ledger rows at their running average cost.
func (r *Repository) Valuation(ctx context.Context, scope shared.ScopeFilter, warehouseID int64) ([]ValuationEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT i.id, i.code, i.name, l.warehouse_id, l.quantity, l.avg_cost, ROUND(l.quantity * l.avg_cost, 2)
		   FROM stock_levels l
		   JOIN stock_items i ON i.id = l.item_id
		  WHERE ($1::bigint IS NULL OR i.property_id = $1)
		    AND ($2::bigint = 0 OR l.warehouse_id = $2)
		  ORDER BY i.code, l.warehouse_id`,
		scope.PropertyID, warehouseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []ValuationEntry
	for rows.Next() {
		var e ValuationEntry
		if err := rows.Scan(&e.ItemID, &e.ItemCode, &e.ItemName, &e.WarehouseID, &e.Quantity, &e.AvgCost, &e.TotalValue); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MovementCostTotals sums CONSUMPTION and WASTE movement costs for a period.
func (r *Repository) MovementCostTotals(ctx context.Context, warehouseID int64, from, to time.Time) (CostTotals, error) {
	var totals CostTotals
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_cost) FILTER (WHERE movement_type='CONSUMPTION'), 0),
		        COALESCE(SUM(total_cost) FILTER (WHERE movement_type='WASTE'), 0)
		   FROM stock_movements
		  WHERE src_warehouse_id=$1 AND created_at >= $2 AND created_at < $3`,
		warehouseID, from, to).
		Scan(&totals.Consumption, &totals.Waste)
	if err != nil {
		return CostTotals{}, err
	}
	return totals, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
