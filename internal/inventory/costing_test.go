package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// requireDec compares decimals by value, not representation.
func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestBlendAvgCost(t *testing.T) {
	// 10 units at 2.00 plus 10 at 4.00 blends to exactly 3.00.
	requireDec(t, "3.00", BlendAvgCost(qty("10"), qty("2.00"), qty("10"), qty("4.00")))

	// First receipt takes the incoming cost directly.
	requireDec(t, "1.25", BlendAvgCost(decimal.Zero, decimal.Zero, qty("5"), qty("1.25")))

	// Uneven blend rounds to cost precision (4 places).
	requireDec(t, "106666.6667", BlendAvgCost(qty("10"), qty("100000"), qty("5"), qty("120000")))
}

func TestRoundingContracts(t *testing.T) {
	requireDec(t, "1.235", RoundQty(qty("1.23456")))
	requireDec(t, "1.2346", RoundCost(qty("1.23456")))
	requireDec(t, "1.23", RoundMoney(qty("1.23456")))
}

func TestMovementTotal(t *testing.T) {
	// 3 x 0.333... lands on money precision.
	requireDec(t, "1.00", MovementTotal(qty("3"), qty("0.3333")))
	requireDec(t, "350", MovementTotal(qty("50"), qty("6")).Add(MovementTotal(qty("10"), qty("5"))))
}

func TestLevelValue(t *testing.T) {
	level := StockLevel{Quantity: qty("90"), AvgCost: qty("5.3333")}
	requireDec(t, "480.00", level.Value())
}
