package masterdata

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/innkeep-pms/innkeep/internal/shared"
)

// Repository persists the catalog in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `id, property_id, code, name, category, unit, par_level, is_consignment, active, created_at, updated_at`

func scanItem(row pgx.Row) (StockItem, error) {
	var item StockItem
	err := row.Scan(&item.ID, &item.PropertyID, &item.Code, &item.Name, &item.Category,
		&item.Unit, &item.ParLevel, &item.Consignment, &item.Active, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func (r *Repository) CreateItem(ctx context.Context, item StockItem) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO stock_items (property_id, code, name, category, unit, par_level, is_consignment, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		item.PropertyID, item.Code, item.Name, item.Category, item.Unit,
		item.ParLevel, item.Consignment, item.Active, item.CreatedAt, item.UpdatedAt).
		Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, errConstraint("item code %q already exists for property %d", item.Code, item.PropertyID)
		}
		return 0, err
	}
	return id, nil
}

func (r *Repository) UpdateItem(ctx context.Context, item StockItem) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE stock_items
		    SET name=$2, category=$3, unit=$4, par_level=$5, is_consignment=$6, updated_at=$7
		  WHERE id=$1`,
		item.ID, item.Name, item.Category, item.Unit, item.ParLevel, item.Consignment, item.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errNotFound("item %d", item.ID)
	}
	return nil
}

func (r *Repository) SetItemActive(ctx context.Context, id int64, active bool, now time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE stock_items SET active=$2, updated_at=$3 WHERE id=$1`, id, active, now)
	return err
}

func (r *Repository) DeleteItem(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM stock_items WHERE id=$1`, id)
	if isForeignKeyViolation(err) {
		return errConstraint("item %d has stock history; deactivate instead", id)
	}
	return err
}

func (r *Repository) GetItem(ctx context.Context, id int64) (StockItem, error) {
	item, err := scanItem(r.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM stock_items WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockItem{}, errNotFound("item %d", id)
		}
		return StockItem{}, err
	}
	return item, nil
}

func (r *Repository) ListItems(ctx context.Context, scope shared.ScopeFilter, req ListItemsRequest) ([]StockItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM stock_items
		  WHERE ($1::bigint IS NULL OR property_id = $1)
		    AND ($2::text = '' OR category = $2)
		    AND (NOT $3::bool OR active)
		    AND ($4::text = '' OR code ILIKE '%' || $4 || '%' OR name ILIKE '%' || $4 || '%')
		  ORDER BY code`,
		scope.PropertyID, req.Category, req.ActiveOnly, req.SearchQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StockItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ItemHasHistory reports whether any stock table references the item.
func (r *Repository) ItemHasHistory(ctx context.Context, id int64) (bool, error) {
	var used bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM stock_levels WHERE item_id=$1)
		     OR EXISTS (SELECT 1 FROM stock_batches WHERE item_id=$1)
		     OR EXISTS (SELECT 1 FROM stock_movements WHERE item_id=$1)
		     OR EXISTS (SELECT 1 FROM waste_records WHERE item_id=$1)`, id).
		Scan(&used)
	return used, err
}

const warehouseColumns = `id, property_id, name, warehouse_type, active, created_at, updated_at`

func scanWarehouse(row pgx.Row) (Warehouse, error) {
	var wh Warehouse
	var whType string
	err := row.Scan(&wh.ID, &wh.PropertyID, &wh.Name, &whType, &wh.Active, &wh.CreatedAt, &wh.UpdatedAt)
	wh.Type = WarehouseType(whType)
	return wh, err
}

func (r *Repository) CreateWarehouse(ctx context.Context, wh Warehouse) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO warehouses (property_id, name, warehouse_type, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		wh.PropertyID, wh.Name, string(wh.Type), wh.Active, wh.CreatedAt, wh.UpdatedAt).
		Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, errConstraint("warehouse %q already exists for property %d", wh.Name, wh.PropertyID)
		}
		return 0, err
	}
	return id, nil
}

func (r *Repository) SetWarehouseActive(ctx context.Context, id int64, active bool, now time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE warehouses SET active=$2, updated_at=$3 WHERE id=$1`, id, active, now)
	return err
}

func (r *Repository) DeleteWarehouse(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM warehouses WHERE id=$1`, id)
	if isForeignKeyViolation(err) {
		return errConstraint("warehouse %d has stock history; deactivate instead", id)
	}
	return err
}

func (r *Repository) GetWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	wh, err := scanWarehouse(r.pool.QueryRow(ctx,
		`SELECT `+warehouseColumns+` FROM warehouses WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Warehouse{}, errNotFound("warehouse %d", id)
		}
		return Warehouse{}, err
	}
	return wh, nil
}

func (r *Repository) ListWarehouses(ctx context.Context, scope shared.ScopeFilter) ([]Warehouse, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+warehouseColumns+` FROM warehouses
		  WHERE ($1::bigint IS NULL OR property_id = $1)
		  ORDER BY name`,
		scope.PropertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var warehouses []Warehouse
	for rows.Next() {
		wh, err := scanWarehouse(rows)
		if err != nil {
			return nil, err
		}
		warehouses = append(warehouses, wh)
	}
	return warehouses, rows.Err()
}

// WarehouseHasHistory reports whether any stock table references the location.
func (r *Repository) WarehouseHasHistory(ctx context.Context, id int64) (bool, error) {
	var used bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM stock_levels WHERE warehouse_id=$1)
		     OR EXISTS (SELECT 1 FROM stock_batches WHERE warehouse_id=$1)
		     OR EXISTS (SELECT 1 FROM stock_movements WHERE src_warehouse_id=$1 OR dst_warehouse_id=$1)
		     OR EXISTS (SELECT 1 FROM waste_records WHERE warehouse_id=$1)`, id).
		Scan(&used)
	return used, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
