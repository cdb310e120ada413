// Package masterdata manages the catalog the stock core references: stock
// items and warehouses.
package masterdata

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockItem is a purchasable/consumable catalog entry. Code is unique per
// property.
type StockItem struct {
	ID          int64
	PropertyID  int64
	Code        string
	Name        string
	Category    string
	Unit        string
	ParLevel    decimal.Decimal
	Consignment bool
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WarehouseType distinguishes storage locations.
type WarehouseType string

const (
	WarehouseMain    WarehouseType = "MAIN"
	WarehouseKitchen WarehouseType = "KITCHEN"
	WarehouseBar     WarehouseType = "BAR"
	WarehouseCellar  WarehouseType = "CELLAR"
)

// Valid reports whether t is a known warehouse type.
func (t WarehouseType) Valid() bool {
	switch t {
	case WarehouseMain, WarehouseKitchen, WarehouseBar, WarehouseCellar:
		return true
	}
	return false
}

// Warehouse is a storage location within a property.
type Warehouse struct {
	ID         int64
	PropertyID int64
	Name       string
	Type       WarehouseType
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// --- Input DTOs ---

// CreateItemInput for new catalog entries.
type CreateItemInput struct {
	PropertyID  int64
	Code        string
	Name        string
	Category    string
	Unit        string
	ParLevel    decimal.Decimal
	Consignment bool
}

// UpdateItemInput edits a catalog entry. Code and property are immutable.
type UpdateItemInput struct {
	ID          int64
	Name        string
	Category    string
	Unit        string
	ParLevel    decimal.Decimal
	Consignment bool
}

// CreateWarehouseInput for new storage locations.
type CreateWarehouseInput struct {
	PropertyID int64
	Name       string
	Type       WarehouseType
}

// ListItemsRequest filters item listings.
type ListItemsRequest struct {
	Category    string
	ActiveOnly  bool
	SearchQuery string
}
