package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/innkeep-pms/innkeep/internal/inventory"
	"github.com/innkeep-pms/innkeep/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPO(ctx context.Context, id int64) (PurchaseOrder, error)
	GetPOWithLines(ctx context.Context, id int64) (POWithLines, error)
	ListPOs(ctx context.Context, req ListPOsRequest) ([]PurchaseOrder, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the purchase order lifecycle. Receiving a delivery
// posts the stock receipt and the line update in one transaction, so a
// rejected line leaves both the order and the stock ledger untouched.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreatePO drafts a purchase order with a generated PO-YYYYMMDD-NNNN number.
func (s *Service) CreatePO(ctx context.Context, input CreatePOInput) (POWithLines, error) {
	if input.SupplierID == 0 || input.WarehouseID == 0 {
		return POWithLines{}, errValidation("supplier and warehouse required")
	}
	if len(input.Lines) == 0 {
		return POWithLines{}, errValidation("at least one line required")
	}
	for i, line := range input.Lines {
		if line.ItemID == 0 {
			return POWithLines{}, errValidation("line %d: item required", i+1)
		}
		if !line.Quantity.IsPositive() {
			return POWithLines{}, errValidation("line %d: quantity must be positive", i+1)
		}
		if line.UnitCost.IsNegative() {
			return POWithLines{}, errValidation("line %d: unit cost must not be negative", i+1)
		}
	}

	var poID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		warehouse, err := tx.GetWarehouse(ctx, input.WarehouseID)
		if err != nil {
			return err
		}
		if !warehouse.Active {
			return errValidation("warehouse %d is inactive", warehouse.ID)
		}
		for _, line := range input.Lines {
			if _, err := tx.GetItem(ctx, line.ItemID); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		maxSeq, err := tx.MaxPOSequence(ctx, "PO-"+now.Format("20060102")+"-")
		if err != nil {
			return err
		}
		number, err := NextPONumber(now, maxSeq)
		if err != nil {
			return err
		}

		po := PurchaseOrder{
			PropertyID:  input.PropertyID,
			Number:      number,
			SupplierID:  input.SupplierID,
			WarehouseID: input.WarehouseID,
			Status:      POStatusDraft,
			ExpectedAt:  input.ExpectedAt,
			Notes:       input.Notes,
			CreatedBy:   input.CreatedBy,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		poID, err = tx.InsertPO(ctx, po)
		if err != nil {
			return err
		}
		for _, line := range input.Lines {
			_, err := tx.InsertLine(ctx, POLine{
				POID:       poID,
				ItemID:     line.ItemID,
				OrderedQty: inventory.RoundQty(line.Quantity),
				UnitCost:   inventory.RoundCost(line.UnitCost),
				Note:       line.Note,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return POWithLines{}, err
	}

	detail, err := s.repo.GetPOWithLines(ctx, poID)
	if err != nil {
		return POWithLines{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, "po:create", poID, map[string]any{
		"number": detail.Number,
		"lines":  len(detail.Lines),
	})
	return detail, nil
}

// Transition moves an order along the lifecycle graph. Receipt statuses are
// driven by deliveries, never set by hand.
func (s *Service) Transition(ctx context.Context, input TransitionInput) (PurchaseOrder, error) {
	if !input.To.Valid() {
		return PurchaseOrder{}, errValidation("unknown status %q", input.To)
	}
	if input.To == POStatusPartiallyReceived || input.To == POStatusReceived {
		return PurchaseOrder{}, errValidation("status %s is set by receiving, not directly", input.To)
	}

	var po PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		po, err = tx.GetPOForUpdate(ctx, input.POID)
		if err != nil {
			return err
		}
		if !po.Status.CanTransition(input.To) {
			return errInvalidState("cannot move order %s from %s to %s", po.Number, po.Status, input.To)
		}
		now := time.Now().UTC()
		if err := tx.SetPOStatus(ctx, po.ID, input.To, now); err != nil {
			return err
		}
		po.Status = input.To
		po.UpdatedAt = now
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, input.ActorID, "po:transition", po.ID, map[string]any{
		"number": po.Number,
		"to":     string(input.To),
	})
	return po, nil
}

// Receive posts one delivery. Each delivered line is bounded by the ordered
// quantity; the stock receipt, the line update and the status change commit
// together.
func (s *Service) Receive(ctx context.Context, input ReceiveInput) (ReceiveResult, error) {
	if len(input.Lines) == 0 {
		return ReceiveResult{}, errValidation("at least one line required")
	}

	var result ReceiveResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetPOForUpdate(ctx, input.POID)
		if err != nil {
			return err
		}
		if !po.Status.Receivable() {
			return errInvalidState("order %s in status %s cannot receive deliveries", po.Number, po.Status)
		}

		lines, err := tx.ListLinesForUpdate(ctx, po.ID)
		if err != nil {
			return err
		}
		byID := make(map[int64]*POLine, len(lines))
		for i := range lines {
			byID[lines[i].ID] = &lines[i]
		}

		var receipts []LineReceipt
		for _, in := range input.Lines {
			line, ok := byID[in.LineID]
			if !ok {
				return errNotFound("line %d on order %s", in.LineID, po.Number)
			}
			if !in.Quantity.IsPositive() {
				return errValidation("line %d: quantity must be positive", in.LineID)
			}
			qty := inventory.RoundQty(in.Quantity)
			if line.ReceivedQty.Add(qty).GreaterThan(line.OrderedQty) {
				return errValidation("line %d: received %s plus %s exceeds ordered %s",
					in.LineID, line.ReceivedQty, qty, line.OrderedQty)
			}

			cost := line.UnitCost
			if in.UnitCost.IsPositive() {
				cost = inventory.RoundCost(in.UnitCost)
			}

			posted, err := inventory.ApplyReceipt(ctx, tx, inventory.ReceiveInput{
				ItemID:         line.ItemID,
				WarehouseID:    po.WarehouseID,
				Quantity:       qty,
				UnitCost:       cost,
				BatchNumber:    in.BatchNumber,
				ExpirationDate: in.ExpirationDate,
				RefType:        "PURCHASE_ORDER",
				RefID:          po.Number,
				ActorID:        input.ActorID,
			})
			if err != nil {
				return err
			}

			line.ReceivedQty = inventory.RoundQty(line.ReceivedQty.Add(qty))
			if err := tx.SetLineReceived(ctx, line.ID, line.ReceivedQty); err != nil {
				return err
			}

			receipt := LineReceipt{
				LineID:     line.ID,
				ItemID:     line.ItemID,
				Quantity:   qty,
				UnitCost:   cost,
				MovementID: posted.Movement.ID,
			}
			if posted.Batch != nil {
				receipt.BatchID = posted.Batch.ID
			}
			receipts = append(receipts, receipt)
		}

		next := ReceiptStatus(lines)
		if !po.Status.CanTransition(next) {
			return errInvalidState("cannot move order %s from %s to %s", po.Number, po.Status, next)
		}
		now := time.Now().UTC()
		if err := tx.SetPOStatus(ctx, po.ID, next, now); err != nil {
			return err
		}
		po.Status = next
		po.UpdatedAt = now

		result = ReceiveResult{PO: po, Lines: lines, Receipts: receipts}
		return nil
	})
	if err != nil {
		return ReceiveResult{}, err
	}
	s.recordAudit(ctx, input.ActorID, "po:receive", result.PO.ID, map[string]any{
		"number": result.PO.Number,
		"status": string(result.PO.Status),
		"lines":  len(result.Receipts),
	})
	return result, nil
}

// OutstandingValue prices the undelivered remainder of an order.
func (s *Service) OutstandingValue(ctx context.Context, poID int64) (decimal.Decimal, error) {
	detail, err := s.repo.GetPOWithLines(ctx, poID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, l := range detail.Lines {
		total = total.Add(l.Outstanding().Mul(l.UnitCost))
	}
	return total.Round(2), nil
}

// GetPOWithLines returns an order with its lines.
func (s *Service) GetPOWithLines(ctx context.Context, id int64) (POWithLines, error) {
	return s.repo.GetPOWithLines(ctx, id)
}

// ListPOs lists orders for the filter.
func (s *Service) ListPOs(ctx context.Context, req ListPOsRequest) ([]PurchaseOrder, error) {
	return s.repo.ListPOs(ctx, req)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "purchase_order",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}
