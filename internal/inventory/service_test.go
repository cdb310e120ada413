package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/innkeep-pms/innkeep/internal/shared"
)

const (
	testItem     = int64(1)
	testItemBulk = int64(2)
	mainStore    = int64(10)
	kitchen      = int64(11)
)

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	repo.addItem(ItemRef{ID: testItem, PropertyID: 1, Code: "TOMATO", Name: "Tomatoes", Unit: "kg", ParLevel: qty("20"), Active: true})
	repo.addItem(ItemRef{ID: testItemBulk, PropertyID: 1, Code: "RICE", Name: "Rice", Unit: "kg", ParLevel: qty("50"), Active: true})
	repo.addWarehouse(WarehouseRef{ID: mainStore, PropertyID: 1, Name: "Main Store", Active: true})
	repo.addWarehouse(WarehouseRef{ID: kitchen, PropertyID: 1, Name: "Kitchen", Active: true})
	return NewService(repo, nil), repo
}

// requirePartition asserts the ledger/batch partition: the sum of non-expired
// batch quantities equals the ledger quantity for the pair.
func requirePartition(t *testing.T, repo *memoryRepo, itemID, warehouseID int64) {
	t.Helper()
	level := repo.levels[levelKey(itemID, warehouseID)]
	sum := decimal.Zero
	for _, b := range repo.batches {
		if b.ItemID == itemID && b.WarehouseID == warehouseID && !b.IsExpired {
			sum = sum.Add(b.Quantity)
		}
	}
	require.True(t, sum.Equal(level.Quantity), "partition broken: batches %s, ledger %s", sum, level.Quantity)
}

func TestReceiveWeightedAverage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("10"), UnitCost: qty("2.00")})
	require.NoError(t, err)
	requireDec(t, "10", result.Level.Quantity)
	requireDec(t, "2.00", result.Level.AvgCost)

	result, err = svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("10"), UnitCost: qty("4.00")})
	require.NoError(t, err)
	requireDec(t, "20", result.Level.Quantity)
	requireDec(t, "3.00", result.Level.AvgCost)
	require.Equal(t, MovementReceipt, result.Movement.Type)
	requireDec(t, "40.00", result.Movement.TotalCost)
}

func TestReceiveValidation(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("0")})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("1"), UnitCost: qty("-1")})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Receive(ctx, ReceiveInput{ItemID: 999, WarehouseID: mainStore, Quantity: qty("1")})
	require.ErrorIs(t, err, shared.ErrNotFound)

	repo.addWarehouse(WarehouseRef{ID: 12, PropertyID: 1, Name: "Closed", Active: false})
	_, err = svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: 12, Quantity: qty("1")})
	require.ErrorIs(t, err, shared.ErrValidation)

	require.Empty(t, repo.movements)
}

func TestReceiveDuplicateBatchNumber(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("5"), UnitCost: qty("1"), BatchNumber: "LOT-1"})
	require.NoError(t, err)

	before := repo.snapshot()
	_, err = svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("5"), UnitCost: qty("1"), BatchNumber: "LOT-1"})
	require.ErrorIs(t, err, shared.ErrConstraint)

	// The failed receipt must not leave a ledger increase behind.
	require.True(t, before.levels[levelKey(testItem, mainStore)].Quantity.Equal(repo.levels[levelKey(testItem, mainStore)].Quantity))
	require.Len(t, repo.movements, 1)
}

func TestFEFOConsumptionScenario(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	// Empty ledger. B1: 100 @ 5.00 expiring in 10 days. B2: 50 @ 6.00
	// expiring in 3 days. Consuming 60 drains B2 first, then 10 from B1.
	r1, err := svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("100"), UnitCost: qty("5.00"), BatchNumber: "B1", ExpirationDate: days(10)})
	require.NoError(t, err)
	r2, err := svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("50"), UnitCost: qty("6.00"), BatchNumber: "B2", ExpirationDate: days(3)})
	require.NoError(t, err)
	requirePartition(t, repo, testItem, mainStore)

	blended := r2.Level.AvgCost
	requireDec(t, "5.3333", blended)

	result, err := svc.Consume(ctx, ConsumeInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("60"), Reason: "dinner service"})
	require.NoError(t, err)

	require.Len(t, result.Movements, 2)
	require.Equal(t, MovementConsumption, result.Movements[0].Type)
	requireDec(t, "50", result.Movements[0].Quantity)
	requireDec(t, "6.00", result.Movements[0].UnitCost)
	requireDec(t, "10", result.Movements[1].Quantity)
	requireDec(t, "5.00", result.Movements[1].UnitCost)
	requireDec(t, "350.00", result.Movements[0].TotalCost.Add(result.Movements[1].TotalCost))

	requireDec(t, "90", result.Level.Quantity)
	require.True(t, blended.Equal(result.Level.AvgCost), "outflow must not revalue remaining stock")

	requireDec(t, "90", repo.batches[r1.Batch.ID].Quantity)
	requireDec(t, "0", repo.batches[r2.Batch.ID].Quantity)
	requirePartition(t, repo, testItem, mainStore)
}

func TestConsumeInsufficientIsAtomic(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("30"), UnitCost: qty("5"), BatchNumber: "B1", ExpirationDate: days(5)})
	require.NoError(t, err)
	_, err = svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("20"), UnitCost: qty("6"), BatchNumber: "B2", ExpirationDate: days(2)})
	require.NoError(t, err)

	before := repo.snapshot()
	_, err = svc.Consume(ctx, ConsumeInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("51"), Reason: "too much"})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	// Ledger, batches and movement log are untouched by the failed call.
	require.Equal(t, len(before.movements), len(repo.movements))
	require.True(t, before.levels[levelKey(testItem, mainStore)].Quantity.Equal(repo.levels[levelKey(testItem, mainStore)].Quantity))
	for id, b := range before.batches {
		require.True(t, b.Quantity.Equal(repo.batches[id].Quantity))
	}
}

func TestConsumeExcludesExpiredStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-24 * time.Hour)
	_, err := svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("40"), UnitCost: qty("5"), BatchNumber: "OLD", ExpirationDate: &past})
	require.NoError(t, err)
	_, err = svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("10"), UnitCost: qty("5"), BatchNumber: "FRESH", ExpirationDate: days(5)})
	require.NoError(t, err)

	// Past-dated stock is out of reach even though its flag is still false.
	_, err = svc.Consume(ctx, ConsumeInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("20"), Reason: "prep"})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	available, err := svc.AvailableBatchQuantity(ctx, testItem, mainStore, false)
	require.NoError(t, err)
	requireDec(t, "10", available)

	all, err := svc.AvailableBatchQuantity(ctx, testItem, mainStore, true)
	require.NoError(t, err)
	requireDec(t, "50", all)
}

func TestConsumePinnedBatch(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	r1, err := svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("30"), UnitCost: qty("4"), BatchNumber: "PIN", ExpirationDate: days(9)})
	require.NoError(t, err)

	result, err := svc.Consume(ctx, ConsumeInput{ItemID: testItem, WarehouseID: mainStore, BatchID: r1.Batch.ID, Quantity: qty("12"), Reason: "banquet"})
	require.NoError(t, err)
	require.Len(t, result.Movements, 1)
	requireDec(t, "18", repo.batches[r1.Batch.ID].Quantity)

	// Pinning an expired batch is rejected.
	b := repo.batches[r1.Batch.ID]
	b.IsExpired = true
	repo.batches[r1.Batch.ID] = b
	_, err = svc.Consume(ctx, ConsumeInput{ItemID: testItem, WarehouseID: mainStore, BatchID: r1.Batch.ID, Quantity: qty("1"), Reason: "x"})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestConsumeLedgerOnlyItem(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	// Receipt without a batch number tracks on the ledger alone.
	_, err := svc.Receive(ctx, ReceiveInput{ItemID: testItemBulk, WarehouseID: mainStore, Quantity: qty("100"), UnitCost: qty("1.50")})
	require.NoError(t, err)

	result, err := svc.Consume(ctx, ConsumeInput{ItemID: testItemBulk, WarehouseID: mainStore, Quantity: qty("25"), Reason: "breakfast"})
	require.NoError(t, err)
	require.Len(t, result.Movements, 1)
	requireDec(t, "1.50", result.Movements[0].UnitCost)
	requireDec(t, "75", result.Level.Quantity)
	require.Empty(t, repo.batches)
}

func TestRecordWaste(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	r1, err := svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("40"), UnitCost: qty("5.00"), BatchNumber: "W1", ExpirationDate: days(4)})
	require.NoError(t, err)

	result, err := svc.RecordWaste(ctx, WasteInput{
		ItemID: testItem, WarehouseID: mainStore, BatchID: r1.Batch.ID,
		Type: WasteSpoilage, Quantity: qty("3"), Reason: "dropped tray", ActorID: 7,
	})
	require.NoError(t, err)

	// Exactly one waste record paired with one WASTE movement.
	require.Len(t, repo.wastes, 1)
	wasteMovements := 0
	for _, m := range repo.movements {
		if m.Type == MovementWaste {
			wasteMovements++
		}
	}
	require.Equal(t, 1, wasteMovements)

	requireDec(t, "5.00", result.Record.UnitCost) // batch cost, not ledger avg
	requireDec(t, "15.00", result.Record.TotalCost)
	requireDec(t, "37", result.Level.Quantity)
	requireDec(t, "37", repo.batches[r1.Batch.ID].Quantity)
	requirePartition(t, repo, testItem, mainStore)
}

func TestRecordWasteLedgerCost(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Receive(ctx, ReceiveInput{ItemID: testItemBulk, WarehouseID: mainStore, Quantity: qty("10"), UnitCost: qty("2.00")})
	require.NoError(t, err)
	_, err = svc.Receive(ctx, ReceiveInput{ItemID: testItemBulk, WarehouseID: mainStore, Quantity: qty("10"), UnitCost: qty("4.00")})
	require.NoError(t, err)

	// No batch given: cost falls back to the ledger average.
	result, err := svc.RecordWaste(ctx, WasteInput{
		ItemID: testItemBulk, WarehouseID: mainStore,
		Type: WastePreparation, Quantity: qty("2"), Reason: "trim",
	})
	require.NoError(t, err)
	requireDec(t, "3.00", result.Record.UnitCost)
	requireDec(t, "6.00", result.Record.TotalCost)
}

func TestRecordWasteValidation(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("5"), UnitCost: qty("1")})
	require.NoError(t, err)
	before := repo.snapshot()

	_, err = svc.RecordWaste(ctx, WasteInput{ItemID: testItem, WarehouseID: mainStore, Type: "THEFT", Quantity: qty("1"), Reason: "x"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordWaste(ctx, WasteInput{ItemID: testItem, WarehouseID: mainStore, Type: WasteDamaged, Quantity: qty("1")})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordWaste(ctx, WasteInput{ItemID: testItem, WarehouseID: mainStore, Type: WasteDamaged, Quantity: qty("99"), Reason: "x"})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	require.Equal(t, len(before.movements), len(repo.movements))
	require.Empty(t, repo.wastes)
}

func TestTransfer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Receive(ctx, ReceiveInput{ItemID: testItemBulk, WarehouseID: mainStore, Quantity: qty("50"), UnitCost: qty("2.00")})
	require.NoError(t, err)
	_, err = svc.Receive(ctx, ReceiveInput{ItemID: testItemBulk, WarehouseID: kitchen, Quantity: qty("10"), UnitCost: qty("4.00")})
	require.NoError(t, err)

	result, err := svc.Transfer(ctx, TransferInput{ItemID: testItemBulk, SrcWarehouseID: mainStore, DstWarehouseID: kitchen, Quantity: qty("10")})
	require.NoError(t, err)

	requireDec(t, "40", result.Source.Quantity)
	requireDec(t, "2.00", result.Source.AvgCost)
	requireDec(t, "20", result.Destination.Quantity)
	// Destination blends incoming stock at the source average:
	// (10*4 + 10*2) / 20 = 3.00
	requireDec(t, "3.00", result.Destination.AvgCost)

	require.Equal(t, MovementTransferOut, result.Out.Type)
	require.Equal(t, MovementTransferIn, result.In.Type)
	require.NotEmpty(t, result.Out.RefID)
	require.Equal(t, result.Out.RefID, result.In.RefID)

	_, err = svc.Transfer(ctx, TransferInput{ItemID: testItemBulk, SrcWarehouseID: mainStore, DstWarehouseID: kitchen, Quantity: qty("1000")})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	_, err = svc.Transfer(ctx, TransferInput{ItemID: testItemBulk, SrcWarehouseID: mainStore, DstWarehouseID: mainStore, Quantity: qty("1")})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAdjust(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Receive(ctx, ReceiveInput{ItemID: testItemBulk, WarehouseID: mainStore, Quantity: qty("30"), UnitCost: qty("2.00")})
	require.NoError(t, err)

	// Cycle count found 27.5.
	result, err := svc.Adjust(ctx, AdjustInput{ItemID: testItemBulk, WarehouseID: mainStore, NewQuantity: qty("27.5"), Reason: "cycle count"})
	require.NoError(t, err)
	requireDec(t, "27.5", result.Level.Quantity)
	requireDec(t, "2.00", result.Level.AvgCost)
	requireDec(t, "-2.5", result.Delta)
	require.NotNil(t, result.Movement)
	require.Equal(t, MovementAdjustment, result.Movement.Type)
	requireDec(t, "2.5", result.Movement.Quantity)

	// Upward correction blends at the current average, leaving it unchanged.
	result, err = svc.Adjust(ctx, AdjustInput{ItemID: testItemBulk, WarehouseID: mainStore, NewQuantity: qty("30"), Reason: "recount"})
	require.NoError(t, err)
	requireDec(t, "2.00", result.Level.AvgCost)

	// No-op adjustment emits no movement.
	movementsBefore := len(repo.movements)
	result, err = svc.Adjust(ctx, AdjustInput{ItemID: testItemBulk, WarehouseID: mainStore, NewQuantity: qty("30"), Reason: "same"})
	require.NoError(t, err)
	require.Nil(t, result.Movement)
	require.Equal(t, movementsBefore, len(repo.movements))

	_, err = svc.Adjust(ctx, AdjustInput{ItemID: testItemBulk, WarehouseID: mainStore, NewQuantity: qty("-1"), Reason: "bad"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSweepExpiredIsIdempotent(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-48 * time.Hour)
	_, err := svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("10"), UnitCost: qty("1"), BatchNumber: "GONE", ExpirationDate: &past})
	require.NoError(t, err)
	_, err = svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("10"), UnitCost: qty("1"), BatchNumber: "FRESH", ExpirationDate: days(10)})
	require.NoError(t, err)

	flipped, err := svc.SweepExpired(ctx, mainStore, 1)
	require.NoError(t, err)
	require.Equal(t, 1, flipped)

	flipped, err = svc.SweepExpired(ctx, mainStore, 1)
	require.NoError(t, err)
	require.Equal(t, 0, flipped)

	expired := 0
	for _, b := range repo.batches {
		if b.IsExpired {
			expired++
		}
	}
	require.Equal(t, 1, expired)
}

func TestExpiringBatches(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("5"), UnitCost: qty("1"), BatchNumber: "SOON", ExpirationDate: days(2)})
	require.NoError(t, err)
	_, err = svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("5"), UnitCost: qty("1"), BatchNumber: "LATER", ExpirationDate: days(30)})
	require.NoError(t, err)
	_, err = svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("5"), UnitCost: qty("1"), BatchNumber: "NEVER"})
	require.NoError(t, err)

	expiring, err := svc.ExpiringBatches(ctx, mainStore, 7)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	require.Equal(t, "SOON", expiring[0].BatchNumber)
}

func TestLowStockAlerts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Par level for TOMATO is 20; 15 on hand is an alert.
	_, err := svc.Receive(ctx, ReceiveInput{ItemID: testItem, WarehouseID: mainStore, Quantity: qty("15"), UnitCost: qty("1")})
	require.NoError(t, err)
	// RICE par is 50; 80 on hand is fine.
	_, err = svc.Receive(ctx, ReceiveInput{ItemID: testItemBulk, WarehouseID: mainStore, Quantity: qty("80"), UnitCost: qty("1")})
	require.NoError(t, err)

	alerts, err := svc.LowStockAlerts(ctx, shared.ScopeProperty(1))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, "TOMATO", alerts[0].ItemCode)

	alerts, err = svc.LowStockAlerts(ctx, shared.ScopeProperty(2))
	require.NoError(t, err)
	require.Empty(t, alerts)
}

func TestReturnToSupplier(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Receive(ctx, ReceiveInput{ItemID: testItemBulk, WarehouseID: mainStore, Quantity: qty("20"), UnitCost: qty("3.00")})
	require.NoError(t, err)

	result, err := svc.Return(ctx, ConsumeInput{
		ItemID: testItemBulk, WarehouseID: mainStore, Quantity: qty("5"),
		RefType: "PURCHASE_ORDER", RefID: "PO-20260828-0001", Reason: "damaged on arrival",
	})
	require.NoError(t, err)
	require.Len(t, result.Movements, 1)
	require.Equal(t, MovementReturn, result.Movements[0].Type)
	requireDec(t, "15", result.Level.Quantity)
	require.Equal(t, "PO-20260828-0001", repo.movements[len(repo.movements)-1].RefID)
}
