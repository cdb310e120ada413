package inventory

import "github.com/shopspring/decimal"

// Precision contracts: quantities carry 3 decimal places, unit costs 4,
// money totals 2. Applied on every write so repeated reads are stable.
const (
	qtyPlaces   = 3
	costPlaces  = 4
	moneyPlaces = 2
)

// RoundQty rounds a quantity to the stored precision.
func RoundQty(d decimal.Decimal) decimal.Decimal {
	return d.Round(qtyPlaces)
}

// RoundCost rounds a unit cost to the stored precision.
func RoundCost(d decimal.Decimal) decimal.Decimal {
	return d.Round(costPlaces)
}

// RoundMoney rounds a money total to the stored precision.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// MovementTotal computes the money value of one movement row.
func MovementTotal(qty, unitCost decimal.Decimal) decimal.Decimal {
	return RoundMoney(qty.Mul(unitCost))
}

// BlendAvgCost returns the new weighted-average unit cost after receiving
// qty units at unitCost on top of the existing (oldQty, oldAvg) position:
//
//	newAvg = (oldQty*oldAvg + qty*unitCost) / (oldQty + qty)
//
// A first receipt (oldQty zero) takes the incoming unit cost directly.
// Outflows never call this; weighted-average costing does not revalue
// remaining stock on the way out.
func BlendAvgCost(oldQty, oldAvg, qty, unitCost decimal.Decimal) decimal.Decimal {
	newQty := oldQty.Add(qty)
	if newQty.IsZero() {
		return RoundCost(unitCost)
	}
	total := oldQty.Mul(oldAvg).Add(qty.Mul(unitCost))
	return RoundCost(total.Div(newQty))
}
