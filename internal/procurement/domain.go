// Package procurement implements purchase orders: drafting, the approval
// lifecycle, and receiving deliveries into stock.
package procurement

import (
	"time"

	"github.com/shopspring/decimal"
)

// POStatus enumerates purchase order statuses.
type POStatus string

const (
	POStatusDraft             POStatus = "DRAFT"
	POStatusPendingApproval   POStatus = "PENDING_APPROVAL"
	POStatusApproved          POStatus = "APPROVED"
	POStatusSent              POStatus = "SENT"
	POStatusPartiallyReceived POStatus = "PARTIALLY_RECEIVED"
	POStatusReceived          POStatus = "RECEIVED"
	POStatusClosed            POStatus = "CLOSED"
	POStatusCancelled         POStatus = "CANCELLED"
)

// poTransitions is the directed edge set of the status lifecycle. CLOSED and
// CANCELLED have no outgoing edges.
var poTransitions = map[POStatus][]POStatus{
	POStatusDraft:             {POStatusPendingApproval, POStatusCancelled},
	POStatusPendingApproval:   {POStatusApproved, POStatusDraft, POStatusCancelled},
	POStatusApproved:          {POStatusSent, POStatusCancelled},
	POStatusSent:              {POStatusPartiallyReceived, POStatusReceived, POStatusCancelled},
	POStatusPartiallyReceived: {POStatusPartiallyReceived, POStatusReceived},
	POStatusReceived:          {POStatusClosed},
}

// Valid reports whether s is a known status.
func (s POStatus) Valid() bool {
	switch s {
	case POStatusDraft, POStatusPendingApproval, POStatusApproved, POStatusSent,
		POStatusPartiallyReceived, POStatusReceived, POStatusClosed, POStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the edge from s to next exists in the
// lifecycle graph.
func (s POStatus) CanTransition(next POStatus) bool {
	for _, allowed := range poTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Receivable reports whether deliveries may be posted against the order.
func (s POStatus) Receivable() bool {
	return s == POStatusSent || s == POStatusPartiallyReceived
}

// PurchaseOrder model.
type PurchaseOrder struct {
	ID          int64
	PropertyID  int64
	Number      string
	SupplierID  int64
	WarehouseID int64
	Status      POStatus
	ExpectedAt  *time.Time
	Notes       string
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// POLine is one ordered item on a purchase order. ReceivedQty accumulates
// across deliveries and never exceeds OrderedQty.
type POLine struct {
	ID          int64
	POID        int64
	ItemID      int64
	OrderedQty  decimal.Decimal
	ReceivedQty decimal.Decimal
	UnitCost    decimal.Decimal
	Note        string
}

// Outstanding returns the quantity still awaiting delivery.
func (l POLine) Outstanding() decimal.Decimal {
	return l.OrderedQty.Sub(l.ReceivedQty)
}

// LineTotal returns the ordered value of the line.
func (l POLine) LineTotal() decimal.Decimal {
	return l.OrderedQty.Mul(l.UnitCost).Round(2)
}

// FullyReceived reports whether the line has no outstanding quantity.
func (l POLine) FullyReceived() bool {
	return !l.Outstanding().IsPositive()
}

// ReceiptStatus derives the post-delivery order status from its lines: every
// line fully received means RECEIVED, anything outstanding means
// PARTIALLY_RECEIVED.
func ReceiptStatus(lines []POLine) POStatus {
	for _, l := range lines {
		if !l.FullyReceived() {
			return POStatusPartiallyReceived
		}
	}
	return POStatusReceived
}

// POWithLines bundles an order with its lines for detail views.
type POWithLines struct {
	PurchaseOrder
	Lines []POLine
	Total decimal.Decimal
}

// --- Input DTOs ---

// CreatePOInput for drafting a purchase order.
type CreatePOInput struct {
	PropertyID  int64
	SupplierID  int64
	WarehouseID int64
	ExpectedAt  *time.Time
	Notes       string
	CreatedBy   int64
	Lines       []CreatePOLineInput
}

// CreatePOLineInput for order line items.
type CreatePOLineInput struct {
	ItemID   int64
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
	Note     string
}

// TransitionInput moves an order along the lifecycle graph.
type TransitionInput struct {
	POID    int64
	To      POStatus
	ActorID int64
}

// ReceiveLineInput is one delivered line of a shipment. UnitCost overrides the
// ordered cost when the delivery note priced differently; zero means use the
// ordered cost.
type ReceiveLineInput struct {
	LineID         int64
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	BatchNumber    string
	ExpirationDate *time.Time
}

// ReceiveInput posts one delivery against an order.
type ReceiveInput struct {
	POID    int64
	ActorID int64
	Lines   []ReceiveLineInput
}

// ReceiveResult reports the per-line stock postings and the resulting order
// status.
type ReceiveResult struct {
	PO       PurchaseOrder
	Lines    []POLine
	Receipts []LineReceipt
}

// LineReceipt pairs a delivered line with the stock movement it produced.
type LineReceipt struct {
	LineID     int64
	ItemID     int64
	Quantity   decimal.Decimal
	UnitCost   decimal.Decimal
	MovementID int64
	BatchID    int64
}

// ListPOsRequest filters order listings.
type ListPOsRequest struct {
	PropertyID int64
	Status     POStatus
	SupplierID int64
	Limit      int
	Offset     int
}
