package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pharmacy_pos_backend/internal/models"
	"pharmacy_pos_backend/internal/repositories"
	"pharmacy_pos_backend/pkg/utils"

	"github.com/shopspring/decimal"
)

const (
	expiryLayout          = "2006-01-02"
	defaultExpiringWindow = 30
	movementListLimit     = 200
)

// CreateInventoryItemRequest DTO
type CreateInventoryItemRequest struct {
	Name   string          `json:"name" binding:"required"`
	Batch  string          `json:"batch" binding:"required"`
	Expiry string          `json:"expiry" binding:"required"` // YYYY-MM-DD
	Price  decimal.Decimal `json:"price"`
	Stock  int             `json:"stock"`
	Agency *string         `json:"agency"`
}

// UpdateInventoryItemRequest DTO. Nil fields are left unchanged.
type UpdateInventoryItemRequest struct {
	Name   *string          `json:"name"`
	Batch  *string          `json:"batch"`
	Expiry *string          `json:"expiry"`
	Price  *decimal.Decimal `json:"price"`
	Stock  *int             `json:"stock"`
	Agency *string          `json:"agency"`
	Reason *string          `json:"reason"`
}

// InventoryService manages the tenant's stock.
type InventoryService interface {
	CreateItem(ctx context.Context, ownerID int64, req CreateInventoryItemRequest) (*models.InventoryItem, error)
	GetItems(ctx context.Context, ownerID int64, filters models.InventoryFilters) ([]models.InventoryItem, int, error)
	GetItemByID(ctx context.Context, ownerID, itemID int64) (*models.InventoryItem, error)
	UpdateItem(ctx context.Context, ownerID, itemID int64, req UpdateInventoryItemRequest) (*models.InventoryItem, error)
	DeleteItem(ctx context.Context, ownerID, itemID int64) error
	GetExpiringItems(ctx context.Context, ownerID int64, days int) ([]models.InventoryItem, error)
	GetMovements(ctx context.Context, ownerID int64, itemID *int64) ([]models.InventoryMovement, error)
}

type inventoryService struct {
	inventoryRepo repositories.InventoryRepository
	movementRepo  repositories.InventoryMovementRepository
	tx            repositories.Transactor
	guard         UsageGuard
	now           func() time.Time
}

// NewInventoryService creates a new instance of InventoryService.
func NewInventoryService(
	ir repositories.InventoryRepository,
	mr repositories.InventoryMovementRepository,
	tx repositories.Transactor,
	guard UsageGuard,
) InventoryService {
	return &inventoryService{
		inventoryRepo: ir,
		movementRepo:  mr,
		tx:            tx,
		guard:         guard,
		now:           time.Now,
	}
}

func parseExpiry(s string) (time.Time, error) {
	t, err := time.Parse(expiryLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: expiry must be a YYYY-MM-DD date", ErrValidation)
	}
	return t, nil
}

func validateItem(item *models.InventoryItem) error {
	if utils.IsEmpty(item.Name) {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if utils.IsEmpty(item.Batch) {
		return fmt.Errorf("%w: batch is required", ErrValidation)
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	if item.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}
	return nil
}

func (s *inventoryService) CreateItem(ctx context.Context, ownerID int64, req CreateInventoryItemRequest) (*models.InventoryItem, error) {
	expiry, err := parseExpiry(req.Expiry)
	if err != nil {
		return nil, err
	}
	item := &models.InventoryItem{
		OwnerID: ownerID,
		Name:    strings.TrimSpace(req.Name),
		Batch:   strings.TrimSpace(req.Batch),
		Expiry:  expiry,
		Price:   utils.RoundMoney(req.Price),
		Stock:   req.Stock,
		Agency:  utils.NewNullString(utils.DerefString(req.Agency)),
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}
	if err := s.guard.CheckLimit(ctx, ownerID, models.ResourceInventory); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		if _, err := s.inventoryRepo.CreateItem(ctx, tx, item); err != nil {
			return err
		}
		if item.Stock == 0 {
			return nil
		}
		_, err := s.movementRepo.CreateMovement(ctx, tx, &models.InventoryMovement{
			InventoryItemID: item.ID,
			OwnerID:         ownerID,
			MovementType:    models.MovementTypeInitial,
			QuantityChanged: item.Stock,
			MovementDate:    s.now().UTC(),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating inventory item: %v", ErrPersistence, err)
	}
	return item, nil
}

func (s *inventoryService) GetItems(ctx context.Context, ownerID int64, filters models.InventoryFilters) ([]models.InventoryItem, int, error) {
	items, total, err := s.inventoryRepo.GetItems(ctx, ownerID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing inventory: %v", ErrPersistence, err)
	}
	return items, total, nil
}

func (s *inventoryService) GetItemByID(ctx context.Context, ownerID, itemID int64) (*models.InventoryItem, error) {
	item, err := s.inventoryRepo.GetItemByID(ctx, ownerID, itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInventoryItemNotFound
		}
		return nil, fmt.Errorf("%w: loading inventory item %d: %v", ErrPersistence, itemID, err)
	}
	return item, nil
}

// UpdateItem applies the patch under a row lock. Descriptive fields never touch
// stock; an explicit stock target is applied as a delta against the locked row
// and recorded as an adjustment movement.
func (s *inventoryService) UpdateItem(ctx context.Context, ownerID, itemID int64, req UpdateInventoryItemRequest) (*models.InventoryItem, error) {
	var expiry *time.Time
	if req.Expiry != nil {
		parsed, err := parseExpiry(*req.Expiry)
		if err != nil {
			return nil, err
		}
		expiry = &parsed
	}
	if req.Stock != nil && *req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}

	var item *models.InventoryItem
	delta := 0
	err := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		locked, err := s.inventoryRepo.LockItem(ctx, tx, ownerID, itemID)
		if err != nil {
			return err
		}
		item = locked

		if req.Name != nil {
			item.Name = strings.TrimSpace(*req.Name)
		}
		if req.Batch != nil {
			item.Batch = strings.TrimSpace(*req.Batch)
		}
		if expiry != nil {
			item.Expiry = *expiry
		}
		if req.Price != nil {
			item.Price = utils.RoundMoney(*req.Price)
		}
		if req.Agency != nil {
			item.Agency = utils.NewNullString(*req.Agency)
		}
		if err := validateItem(item); err != nil {
			return err
		}
		if err := s.inventoryRepo.UpdateItem(ctx, tx, item); err != nil {
			return err
		}

		if req.Stock == nil || *req.Stock == item.Stock {
			return nil
		}
		delta = *req.Stock - item.Stock
		if item.Stock, err = s.inventoryRepo.AdjustStock(ctx, tx, ownerID, itemID, delta); err != nil {
			return err
		}
		reason := utils.NewNullString(utils.DerefString(req.Reason))
		if reason == nil {
			reason = utils.NewNullString("Manual stock edit")
		}
		_, err = s.movementRepo.CreateMovement(ctx, tx, &models.InventoryMovement{
			InventoryItemID: item.ID,
			OwnerID:         ownerID,
			MovementType:    models.MovementTypeAdjustment,
			QuantityChanged: delta,
			Reason:          reason,
			MovementDate:    s.now().UTC(),
		})
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return nil, err
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrInventoryItemNotFound
		case errors.Is(err, repositories.ErrInsufficientStock):
			return nil, fmt.Errorf("%w: item %d", ErrInsufficientStock, itemID)
		}
		return nil, fmt.Errorf("%w: updating inventory item %d: %v", ErrPersistence, itemID, err)
	}
	if delta != 0 {
		utils.LogInfo("Inventory stock adjusted", map[string]interface{}{
			"owner_id": ownerID, "item_id": itemID, "delta": delta, "stock": item.Stock,
		})
	}
	return item, nil
}

func (s *inventoryService) DeleteItem(ctx context.Context, ownerID, itemID int64) error {
	err := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		return s.inventoryRepo.DeleteItem(ctx, tx, ownerID, itemID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInventoryItemNotFound
		}
		return fmt.Errorf("%w: deleting inventory item %d: %v", ErrPersistence, itemID, err)
	}
	return nil
}

// GetExpiringItems lists stocked items expiring within the next days days.
func (s *inventoryService) GetExpiringItems(ctx context.Context, ownerID int64, days int) ([]models.InventoryItem, error) {
	if days < 0 {
		return nil, fmt.Errorf("%w: days cannot be negative", ErrValidation)
	}
	if days == 0 {
		days = defaultExpiringWindow
	}
	cutoff := s.now().UTC().AddDate(0, 0, days)
	items, err := s.inventoryRepo.GetExpiringItems(ctx, ownerID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: listing expiring inventory: %v", ErrPersistence, err)
	}
	return items, nil
}

// GetMovements returns the stock ledger, newest first, optionally for one item.
func (s *inventoryService) GetMovements(ctx context.Context, ownerID int64, itemID *int64) ([]models.InventoryMovement, error) {
	if itemID != nil {
		if _, err := s.GetItemByID(ctx, ownerID, *itemID); err != nil {
			return nil, err
		}
	}
	movements, err := s.movementRepo.GetMovements(ctx, ownerID, itemID, movementListLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: listing inventory movements: %v", ErrPersistence, err)
	}
	return movements, nil
}
