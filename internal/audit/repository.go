package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads the audit trail from Postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed trail repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const trailQuery = `
SELECT id, actor_id, action, entity, entity_id, meta, occurred_at
  FROM audit_logs
 WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
   AND ($2::timestamptz IS NULL OR occurred_at < $2)
   AND ($3::bigint IS NULL OR actor_id = $3)
   AND ($4::text IS NULL OR entity = $4)
   AND ($5::text IS NULL OR action = $5)
 ORDER BY occurred_at DESC, id DESC`

// TrailWindow returns one page of trail rows, newest first.
func (r *PGRepository) TrailWindow(ctx context.Context, q TrailQuery) ([]TrailEntry, error) {
	rows, err := r.pool.Query(ctx, trailQuery+" OFFSET $6 LIMIT $7",
		toPgTime(q.Filters.From), toPgTime(q.Filters.To),
		optionalID(q.Filters.ActorID), optionalText(q.Filters.Entity), optionalText(q.Filters.Action),
		q.Offset, q.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// TrailAll returns every trail row matching the filters, newest first.
func (r *PGRepository) TrailAll(ctx context.Context, filters TrailFilters) ([]TrailEntry, error) {
	rows, err := r.pool.Query(ctx, trailQuery,
		toPgTime(filters.From), toPgTime(filters.To),
		optionalID(filters.ActorID), optionalText(filters.Entity), optionalText(filters.Action))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]TrailEntry, error) {
	var entries []TrailEntry
	for rows.Next() {
		var (
			e    TrailEntry
			meta []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &meta, &e.At); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalID(id int64) pgtype.Int8 {
	if id == 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: id, Valid: true}
}

func optionalText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}
