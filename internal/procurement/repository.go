package procurement

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/innkeep-pms/innkeep/internal/inventory"
)

// TxRepository exposes transactional purchase order operations. It embeds the
// stock TxRepository so a delivery posts its receipt and its line updates
// inside one transaction.
type TxRepository interface {
	inventory.TxRepository
	GetPOForUpdate(ctx context.Context, id int64) (PurchaseOrder, error)
	ListLinesForUpdate(ctx context.Context, poID int64) ([]POLine, error)
	MaxPOSequence(ctx context.Context, prefix string) (int, error)
	InsertPO(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertLine(ctx context.Context, line POLine) (int64, error)
	SetLineReceived(ctx context.Context, lineID int64, qty decimal.Decimal) error
	SetPOStatus(ctx context.Context, poID int64, status POStatus, now time.Time) error
}

// Repository persists purchase orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	inventory.TxRepository
	tx pgx.Tx
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
	if err := fn(ctx, &txRepo{TxRepository: inventory.NewTxRepository(tx), tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const poColumns = `id, property_id, number, supplier_id, warehouse_id, status, expected_at, notes, created_by, created_at, updated_at`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var status string
	var expected pgtype.Timestamptz
	err := row.Scan(&po.ID, &po.PropertyID, &po.Number, &po.SupplierID, &po.WarehouseID,
		&status, &expected, &po.Notes, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Status = POStatus(status)
	if expected.Valid {
		t := expected.Time
		po.ExpectedAt = &t
	}
	return po, nil
}

func (r *txRepo) GetPOForUpdate(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, err := scanPO(r.tx.QueryRow(ctx,
		`SELECT `+poColumns+` FROM purchase_orders WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, errNotFound("purchase order %d", id)
		}
		return PurchaseOrder{}, err
	}
	return po, nil
}

func (r *txRepo) ListLinesForUpdate(ctx context.Context, poID int64) ([]POLine, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT id, po_id, item_id, ordered_qty, received_qty, unit_cost, note
		   FROM po_lines WHERE po_id=$1 ORDER BY id FOR UPDATE`, poID)
	if err != nil {
		return nil, err
	}
	return collectLines(rows)
}

func (r *txRepo) MaxPOSequence(ctx context.Context, prefix string) (int, error) {
	// Numbers share a fixed PO-YYYYMMDD- prefix; the suffix is the zero-padded
	// daily sequence.
	var maxSeq int
	err := r.tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(SUBSTRING(number FROM LENGTH($1::text)+1)::int), 0)
		   FROM purchase_orders WHERE number LIKE $1 || '%'`, prefix).
		Scan(&maxSeq)
	return maxSeq, err
}

func (r *txRepo) InsertPO(ctx context.Context, po PurchaseOrder) (int64, error) {
	var expected pgtype.Timestamptz
	if po.ExpectedAt != nil {
		expected = pgtype.Timestamptz{Time: *po.ExpectedAt, Valid: true}
	}
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO purchase_orders (property_id, number, supplier_id, warehouse_id, status, expected_at, notes, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		po.PropertyID, po.Number, po.SupplierID, po.WarehouseID, string(po.Status),
		expected, po.Notes, po.CreatedBy, po.CreatedAt, po.UpdatedAt).
		Scan(&id)
	return id, err
}

func (r *txRepo) InsertLine(ctx context.Context, line POLine) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO po_lines (po_id, item_id, ordered_qty, received_qty, unit_cost, note)
		 VALUES ($1, $2, $3, 0, $4, $5)
		 RETURNING id`,
		line.POID, line.ItemID, line.OrderedQty, line.UnitCost, line.Note).
		Scan(&id)
	return id, err
}

func (r *txRepo) SetLineReceived(ctx context.Context, lineID int64, qty decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE po_lines SET received_qty=$2 WHERE id=$1`, lineID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errNotFound("purchase order line %d", lineID)
	}
	return nil
}

func (r *txRepo) SetPOStatus(ctx context.Context, poID int64, status POStatus, now time.Time) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE purchase_orders SET status=$2, updated_at=$3 WHERE id=$1`,
		poID, string(status), now)
	return err
}

func collectLines(rows pgx.Rows) ([]POLine, error) {
	defer rows.Close()
	var lines []POLine
	for rows.Next() {
		var l POLine
		if err := rows.Scan(&l.ID, &l.POID, &l.ItemID, &l.OrderedQty, &l.ReceivedQty, &l.UnitCost, &l.Note); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// GetPO returns an order outside a transaction.
func (r *Repository) GetPO(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, err := scanPO(r.pool.QueryRow(ctx,
		`SELECT `+poColumns+` FROM purchase_orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, errNotFound("purchase order %d", id)
		}
		return PurchaseOrder{}, err
	}
	return po, nil
}

// GetPOWithLines returns an order with its lines and ordered total.
func (r *Repository) GetPOWithLines(ctx context.Context, id int64) (POWithLines, error) {
	po, err := r.GetPO(ctx, id)
	if err != nil {
		return POWithLines{}, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, po_id, item_id, ordered_qty, received_qty, unit_cost, note
		   FROM po_lines WHERE po_id=$1 ORDER BY id`, id)
	if err != nil {
		return POWithLines{}, err
	}
	lines, err := collectLines(rows)
	if err != nil {
		return POWithLines{}, err
	}
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}
	return POWithLines{PurchaseOrder: po, Lines: lines, Total: total}, nil
}

// ListPOs lists orders newest first.
func (r *Repository) ListPOs(ctx context.Context, req ListPOsRequest) ([]PurchaseOrder, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+poColumns+` FROM purchase_orders
		  WHERE ($1::bigint = 0 OR property_id = $1)
		    AND ($2::text = '' OR status = $2)
		    AND ($3::bigint = 0 OR supplier_id = $3)
		  ORDER BY created_at DESC, id DESC
		  LIMIT $4 OFFSET $5`,
		req.PropertyID, string(req.Status), req.SupplierID, limit, req.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pos []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, err
		}
		pos = append(pos, po)
	}
	return pos, rows.Err()
}
