package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// WasteReport summarises shrinkage against total outflow for a period.
type WasteReport struct {
	WarehouseID     int64
	From            time.Time
	To              time.Time
	ConsumptionCost decimal.Decimal
	WasteCost       decimal.Decimal
	WastePercentage decimal.Decimal
}

// CalculateWastePercentage returns wasteCost / consumptionCost * 100 rounded
// to 2 decimal places. consumptionCost is the total outflow cost: the sum of
// CONSUMPTION and WASTE movement costs for the period, so waste counts inside
// its own denominator (a shrink rate against total outflow, not against pure
// consumption).
func CalculateWastePercentage(wasteCost, consumptionCost decimal.Decimal) decimal.Decimal {
	if consumptionCost.IsZero() {
		return decimal.Zero
	}
	return wasteCost.Div(consumptionCost).Mul(hundred).Round(moneyPlaces)
}

// WasteReport builds the period shrink report from the movement log.
func (s *Service) WasteReport(ctx context.Context, warehouseID int64, from, to time.Time) (WasteReport, error) {
	if warehouseID == 0 {
		return WasteReport{}, errValidation("warehouse required")
	}
	if to.Before(from) {
		return WasteReport{}, errValidation("period end before start")
	}
	totals, err := s.repo.MovementCostTotals(ctx, warehouseID, from, to)
	if err != nil {
		return WasteReport{}, err
	}
	outflow := totals.Consumption.Add(totals.Waste)
	return WasteReport{
		WarehouseID:     warehouseID,
		From:            from,
		To:              to,
		ConsumptionCost: RoundMoney(totals.Consumption),
		WasteCost:       RoundMoney(totals.Waste),
		WastePercentage: CalculateWastePercentage(totals.Waste, outflow),
	}, nil
}
