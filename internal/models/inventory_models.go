package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is a stocked medicine batch owned by a tenant.
type InventoryItem struct {
	ID        int64           `json:"id" db:"id"`
	OwnerID   int64           `json:"ownerId" db:"owner_id"`
	Name      string          `json:"name" db:"name"`
	Batch     string          `json:"batch" db:"batch"`
	Expiry    time.Time       `json:"expiry" db:"expiry"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Stock     int             `json:"stock" db:"stock"`
	Agency    *string         `json:"agency,omitempty" db:"agency"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// Movement types recorded in the stock ledger.
const (
	MovementTypeSale           = "sale"
	MovementTypeReturnDeletion = "return_deletion"
	MovementTypeAdjustment     = "adjustment"
	MovementTypeInitial        = "initial"
)

// InventoryMovement is one change in stock for an item.
type InventoryMovement struct {
	ID              int64     `json:"id" db:"id"`
	InventoryItemID int64     `json:"inventoryItemId" db:"inventory_item_id"`
	OwnerID         int64     `json:"ownerId" db:"owner_id"`
	BillID          *int64    `json:"billId,omitempty" db:"bill_id"`
	MovementType    string    `json:"movementType" db:"movement_type"`
	QuantityChanged int       `json:"quantityChanged" db:"quantity_changed"`
	Reason          *string   `json:"reason,omitempty" db:"reason"`
	MovementDate    time.Time `json:"movementDate" db:"movement_date"`
}

// InventoryFilters are the list query parameters.
type InventoryFilters struct {
	Search   *string
	Page     int
	PageSize int
}
