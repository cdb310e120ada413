package inventory

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BatchDraw is one slice of a planned consumption: how much to take from
// which batch. Cost varies per batch, so a multi-batch consumption yields
// one movement per draw.
type BatchDraw struct {
	Batch StockBatch
	Qty   decimal.Decimal
}

// eligible reports whether a batch may be consumed: not expired and holding
// positive quantity.
func eligible(b StockBatch, now time.Time) bool {
	return !b.Expired(now) && b.Quantity.IsPositive()
}

// sortFEFO orders batches first-expired-first-out: earliest expiration date
// first, undated batches last, ties broken by earliest receipt (pure FIFO
// fallback), then by id for stability.
func sortFEFO(batches []StockBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		switch {
		case a.ExpirationDate == nil && b.ExpirationDate == nil:
			// fall through to receipt order
		case a.ExpirationDate == nil:
			return false
		case b.ExpirationDate == nil:
			return true
		case !a.ExpirationDate.Equal(*b.ExpirationDate):
			return a.ExpirationDate.Before(*b.ExpirationDate)
		}
		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
		return a.ID < b.ID
	})
}

// NextBatchFEFO returns the batch to consume next, or nil when no eligible
// batch remains.
func NextBatchFEFO(batches []StockBatch, now time.Time) *StockBatch {
	ordered := make([]StockBatch, 0, len(batches))
	for _, b := range batches {
		if eligible(b, now) {
			ordered = append(ordered, b)
		}
	}
	if len(ordered) == 0 {
		return nil
	}
	sortFEFO(ordered)
	next := ordered[0]
	return &next
}

// PlanFEFO walks the FEFO-ordered eligible batches and allocates qty across
// them. It is a pure planning step: callers apply the draws inside their
// transaction. Returns ErrInsufficientStock (wrapped) when the eligible
// total falls short, before anything is mutated.
func PlanFEFO(batches []StockBatch, qty decimal.Decimal, now time.Time) ([]BatchDraw, error) {
	if !qty.IsPositive() {
		return nil, errValidation("quantity must be positive")
	}
	ordered := make([]StockBatch, 0, len(batches))
	available := decimal.Zero
	for _, b := range batches {
		if eligible(b, now) {
			ordered = append(ordered, b)
			available = available.Add(b.Quantity)
		}
	}
	if available.LessThan(qty) {
		return nil, errInsufficient("requested %s, available %s", qty, available)
	}
	sortFEFO(ordered)

	var draws []BatchDraw
	remaining := qty
	for _, b := range ordered {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(b.Quantity, remaining)
		draws = append(draws, BatchDraw{Batch: b, Qty: take})
		remaining = remaining.Sub(take)
	}
	return draws, nil
}

// AvailableQuantity sums quantities of non-expired batches. Expired batches
// are excluded regardless of their quantity field.
func AvailableQuantity(batches []StockBatch, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		if !b.Expired(now) {
			total = total.Add(b.Quantity)
		}
	}
	return total
}
