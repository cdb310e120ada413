package masterdata

import (
	"context"
	"fmt"
	"time"

	"github.com/innkeep-pms/innkeep/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	CreateItem(ctx context.Context, item StockItem) (int64, error)
	UpdateItem(ctx context.Context, item StockItem) error
	SetItemActive(ctx context.Context, id int64, active bool, now time.Time) error
	DeleteItem(ctx context.Context, id int64) error
	GetItem(ctx context.Context, id int64) (StockItem, error)
	ListItems(ctx context.Context, scope shared.ScopeFilter, req ListItemsRequest) ([]StockItem, error)
	ItemHasHistory(ctx context.Context, id int64) (bool, error)

	CreateWarehouse(ctx context.Context, wh Warehouse) (int64, error)
	SetWarehouseActive(ctx context.Context, id int64, active bool, now time.Time) error
	DeleteWarehouse(ctx context.Context, id int64) error
	GetWarehouse(ctx context.Context, id int64) (Warehouse, error)
	ListWarehouses(ctx context.Context, scope shared.ScopeFilter) ([]Warehouse, error)
	WarehouseHasHistory(ctx context.Context, id int64) (bool, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the item and warehouse catalog. Deactivation is always
// allowed; hard deletes are refused once stock history references the row.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateItem adds a catalog entry, active by default.
func (s *Service) CreateItem(ctx context.Context, input CreateItemInput, actorID int64) (StockItem, error) {
	if input.PropertyID == 0 {
		return StockItem{}, errValidation("property required")
	}
	if input.Code == "" || input.Name == "" {
		return StockItem{}, errValidation("code and name required")
	}
	if input.Unit == "" {
		return StockItem{}, errValidation("unit required")
	}
	if input.ParLevel.IsNegative() {
		return StockItem{}, errValidation("par level must not be negative")
	}

	now := time.Now().UTC()
	item := StockItem{
		PropertyID:  input.PropertyID,
		Code:        input.Code,
		Name:        input.Name,
		Category:    input.Category,
		Unit:        input.Unit,
		ParLevel:    input.ParLevel,
		Consignment: input.Consignment,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return StockItem{}, err
	}
	item.ID = id
	s.recordAudit(ctx, actorID, "item:create", id, map[string]any{"code": item.Code})
	return item, nil
}

// UpdateItem edits the mutable fields of an entry.
func (s *Service) UpdateItem(ctx context.Context, input UpdateItemInput, actorID int64) (StockItem, error) {
	if input.Name == "" || input.Unit == "" {
		return StockItem{}, errValidation("name and unit required")
	}
	if input.ParLevel.IsNegative() {
		return StockItem{}, errValidation("par level must not be negative")
	}
	item, err := s.repo.GetItem(ctx, input.ID)
	if err != nil {
		return StockItem{}, err
	}
	item.Name = input.Name
	item.Category = input.Category
	item.Unit = input.Unit
	item.ParLevel = input.ParLevel
	item.Consignment = input.Consignment
	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return StockItem{}, err
	}
	s.recordAudit(ctx, actorID, "item:update", item.ID, map[string]any{"code": item.Code})
	return item, nil
}

// SetItemActive flips the active flag. Deactivation never fails on history.
func (s *Service) SetItemActive(ctx context.Context, id int64, active bool, actorID int64) error {
	if _, err := s.repo.GetItem(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetItemActive(ctx, id, active, time.Now().UTC()); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "item:set_active", id, map[string]any{"active": active})
	return nil
}

// DeleteItem removes an entry permanently. Refused once stock history exists;
// deactivate instead.
func (s *Service) DeleteItem(ctx context.Context, id int64, actorID int64) error {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return err
	}
	used, err := s.repo.ItemHasHistory(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return errConstraint("item %s has stock history; deactivate instead", item.Code)
	}
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "item:delete", id, map[string]any{"code": item.Code})
	return nil
}

// GetItem returns one catalog entry.
func (s *Service) GetItem(ctx context.Context, id int64) (StockItem, error) {
	return s.repo.GetItem(ctx, id)
}

// ListItems lists entries within the scope.
func (s *Service) ListItems(ctx context.Context, scope shared.ScopeFilter, req ListItemsRequest) ([]StockItem, error) {
	return s.repo.ListItems(ctx, scope, req)
}

// CreateWarehouse adds a storage location, active by default.
func (s *Service) CreateWarehouse(ctx context.Context, input CreateWarehouseInput, actorID int64) (Warehouse, error) {
	if input.PropertyID == 0 {
		return Warehouse{}, errValidation("property required")
	}
	if input.Name == "" {
		return Warehouse{}, errValidation("name required")
	}
	if !input.Type.Valid() {
		return Warehouse{}, errValidation("warehouse type %q not permitted", input.Type)
	}

	now := time.Now().UTC()
	wh := Warehouse{
		PropertyID: input.PropertyID,
		Name:       input.Name,
		Type:       input.Type,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	id, err := s.repo.CreateWarehouse(ctx, wh)
	if err != nil {
		return Warehouse{}, err
	}
	wh.ID = id
	s.recordAudit(ctx, actorID, "warehouse:create", id, map[string]any{"name": wh.Name})
	return wh, nil
}

// SetWarehouseActive flips the active flag.
func (s *Service) SetWarehouseActive(ctx context.Context, id int64, active bool, actorID int64) error {
	if _, err := s.repo.GetWarehouse(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetWarehouseActive(ctx, id, active, time.Now().UTC()); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "warehouse:set_active", id, map[string]any{"active": active})
	return nil
}

// DeleteWarehouse removes a location permanently. Refused once stock history
// exists.
func (s *Service) DeleteWarehouse(ctx context.Context, id int64, actorID int64) error {
	wh, err := s.repo.GetWarehouse(ctx, id)
	if err != nil {
		return err
	}
	used, err := s.repo.WarehouseHasHistory(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return errConstraint("warehouse %s has stock history; deactivate instead", wh.Name)
	}
	if err := s.repo.DeleteWarehouse(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "warehouse:delete", id, map[string]any{"name": wh.Name})
	return nil
}

// GetWarehouse returns one storage location.
func (s *Service) GetWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	return s.repo.GetWarehouse(ctx, id)
}

// ListWarehouses lists locations within the scope.
func (s *Service) ListWarehouses(ctx context.Context, scope shared.ScopeFilter) ([]Warehouse, error) {
	return s.repo.ListWarehouses(ctx, scope)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "masterdata",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}
