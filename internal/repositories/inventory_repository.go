package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pharmacy_pos_backend/internal/models"

	"github.com/lib/pq"
)

// InventoryRepository defines the interface for inventory database operations.
// Every method is scoped to the owning tenant.
type InventoryRepository interface {
	CreateItem(ctx context.Context, executor SQLExecutor, item *models.InventoryItem) (int64, error)
	GetItemByID(ctx context.Context, ownerID, itemID int64) (*models.InventoryItem, error)
	// LockItem reads the row with FOR UPDATE; executor must be a transaction.
	LockItem(ctx context.Context, executor SQLExecutor, ownerID, itemID int64) (*models.InventoryItem, error)
	GetItemsByIDs(ctx context.Context, ownerID int64, itemIDs []int64) (map[int64]models.InventoryItem, error)
	GetItems(ctx context.Context, ownerID int64, filters models.InventoryFilters) ([]models.InventoryItem, int, error)
	GetExpiringItems(ctx context.Context, ownerID int64, before time.Time) ([]models.InventoryItem, error)
	// UpdateItem writes the descriptive columns and leaves stock alone; item.Stock
	// is refreshed from the row.
	UpdateItem(ctx context.Context, executor SQLExecutor, item *models.InventoryItem) error
	DeleteItem(ctx context.Context, executor SQLExecutor, ownerID, itemID int64) error
	// DecrementStock subtracts quantity only if enough stock remains, returning the new level.
	DecrementStock(ctx context.Context, executor SQLExecutor, ownerID, itemID int64, quantity int) (int, error)
	IncrementStock(ctx context.Context, executor SQLExecutor, ownerID, itemID int64, quantity int) (int, error)
	// AdjustStock applies a signed delta, refusing to go below zero.
	AdjustStock(ctx context.Context, executor SQLExecutor, ownerID, itemID int64, delta int) (int, error)
	CountItems(ctx context.Context, ownerID int64) (int, error)
}

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates a new instance of InventoryRepository.
func NewInventoryRepository(db *sql.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

const inventoryColumns = `id, owner_id, name, batch, expiry, price, stock, agency, created_at, updated_at`

func scanInventoryItem(s scanner, item *models.InventoryItem) error {
	return s.Scan(
		&item.ID, &item.OwnerID, &item.Name, &item.Batch, &item.Expiry,
		&item.Price, &item.Stock, &item.Agency, &item.CreatedAt, &item.UpdatedAt,
	)
}

func (r *inventoryRepository) CreateItem(ctx context.Context, executor SQLExecutor, item *models.InventoryItem) (int64, error) {
	query := `INSERT INTO inventory_items (owner_id, name, batch, expiry, price, stock, agency, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id`
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now

	err := executor.QueryRowContext(ctx, query,
		item.OwnerID, item.Name, item.Batch, item.Expiry, item.Price, item.Stock, item.Agency,
		item.CreatedAt, item.UpdatedAt,
	).Scan(&item.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating inventory item")
	}
	return item.ID, nil
}

func (r *inventoryRepository) GetItemByID(ctx context.Context, ownerID, itemID int64) (*models.InventoryItem, error) {
	item := &models.InventoryItem{}
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE id = $1 AND owner_id = $2`
	if err := scanInventoryItem(r.db.QueryRowContext(ctx, query, itemID, ownerID), item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting inventory item %d: %v", ErrDatabaseError, itemID, err)
	}
	return item, nil
}

// GetItemsByIDs loads the referenced items in one round trip. Missing ids are
// simply absent from the map.
func (r *inventoryRepository) GetItemsByIDs(ctx context.Context, ownerID int64, itemIDs []int64) (map[int64]models.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE owner_id = $1 AND id = ANY($2)`
	rows, err := r.db.QueryContext(ctx, query, ownerID, pq.Array(itemIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: loading inventory items: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	items := make(map[int64]models.InventoryItem, len(itemIDs))
	for rows.Next() {
		var item models.InventoryItem
		if err := scanInventoryItem(rows, &item); err != nil {
			return nil, fmt.Errorf("%w: scanning inventory item: %v", ErrDatabaseError, err)
		}
		items[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating inventory rows: %v", ErrDatabaseError, err)
	}
	return items, nil
}

func (r *inventoryRepository) GetItems(ctx context.Context, ownerID int64, filters models.InventoryFilters) ([]models.InventoryItem, int, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + inventoryColumns + `, COUNT(*) OVER() AS total_count
	    FROM inventory_items WHERE owner_id = $1`)
	args := []interface{}{ownerID}

	if filters.Search != nil && strings.TrimSpace(*filters.Search) != "" {
		args = append(args, "%"+strings.TrimSpace(*filters.Search)+"%")
		queryBuilder.WriteString(fmt.Sprintf(" AND (name ILIKE $%d OR batch ILIKE $%d OR agency ILIKE $%d)", len(args), len(args), len(args)))
	}
	queryBuilder.WriteString(" ORDER BY name ASC, id ASC")

	if limit, offset := pageOffset(filters.Page, filters.PageSize); limit > 0 {
		args = append(args, limit, offset)
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)))
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying inventory: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	items := []models.InventoryItem{}
	totalCount := 0
	for rows.Next() {
		var item models.InventoryItem
		if err := rows.Scan(
			&item.ID, &item.OwnerID, &item.Name, &item.Batch, &item.Expiry,
			&item.Price, &item.Stock, &item.Agency, &item.CreatedAt, &item.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning inventory item: %v", ErrDatabaseError, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating inventory rows: %v", ErrDatabaseError, err)
	}
	return items, totalCount, nil
}

// GetExpiringItems returns stocked items whose expiry is on or before the cutoff, soonest first.
func (r *inventoryRepository) GetExpiringItems(ctx context.Context, ownerID int64, before time.Time) ([]models.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items
	          WHERE owner_id = $1 AND stock > 0 AND expiry <= $2
	          ORDER BY expiry ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, ownerID, before)
	if err != nil {
		return nil, fmt.Errorf("%w: querying expiring inventory: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	items := []models.InventoryItem{}
	for rows.Next() {
		var item models.InventoryItem
		if err := scanInventoryItem(rows, &item); err != nil {
			return nil, fmt.Errorf("%w: scanning inventory item: %v", ErrDatabaseError, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating inventory rows: %v", ErrDatabaseError, err)
	}
	return items, nil
}

func (r *inventoryRepository) LockItem(ctx context.Context, executor SQLExecutor, ownerID, itemID int64) (*models.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items
	          WHERE id = $1 AND owner_id = $2
	          FOR UPDATE`
	var item models.InventoryItem
	if err := scanInventoryItem(executor.QueryRowContext(ctx, query, itemID, ownerID), &item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking inventory item %d: %v", ErrDatabaseError, itemID, err)
	}
	return &item, nil
}

func (r *inventoryRepository) UpdateItem(ctx context.Context, executor SQLExecutor, item *models.InventoryItem) error {
	query := `UPDATE inventory_items
	          SET name = $1, batch = $2, expiry = $3, price = $4, agency = $5, updated_at = $6
	          WHERE id = $7 AND owner_id = $8
	          RETURNING stock`
	item.UpdatedAt = time.Now().UTC()
	err := executor.QueryRowContext(ctx, query,
		item.Name, item.Batch, item.Expiry, item.Price, item.Agency, item.UpdatedAt,
		item.ID, item.OwnerID,
	).Scan(&item.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return classifyWriteError(err, fmt.Sprintf("updating inventory item %d", item.ID))
	}
	return nil
}

func (r *inventoryRepository) DeleteItem(ctx context.Context, executor SQLExecutor, ownerID, itemID int64) error {
	result, err := executor.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1 AND owner_id = $2`, itemID, ownerID)
	if err != nil {
		return classifyWriteError(err, fmt.Sprintf("deleting inventory item %d", itemID))
	}
	return expectOneRow(result, "inventory delete")
}

// DecrementStock is the only path that lowers stock for a sale. The guard in the
// WHERE clause makes the check-and-decrement a single atomic statement, so two
// concurrent sales of the last unit cannot both succeed.
func (r *inventoryRepository) DecrementStock(ctx context.Context, executor SQLExecutor, ownerID, itemID int64, quantity int) (int, error) {
	var newStock int
	query := `UPDATE inventory_items
	          SET stock = stock - $1, updated_at = $2
	          WHERE id = $3 AND owner_id = $4 AND stock >= $1
	          RETURNING stock`
	err := executor.QueryRowContext(ctx, query, quantity, time.Now().UTC(), itemID, ownerID).Scan(&newStock)
	if err == nil {
		return newStock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: decrementing stock for item %d: %v", ErrDatabaseError, itemID, err)
	}

	var exists bool
	checkErr := executor.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM inventory_items WHERE id = $1 AND owner_id = $2)`, itemID, ownerID,
	).Scan(&exists)
	if checkErr != nil {
		return 0, fmt.Errorf("%w: checking inventory item %d: %v", ErrDatabaseError, itemID, checkErr)
	}
	if !exists {
		return 0, ErrNotFound
	}
	return 0, fmt.Errorf("%w: item %d, requested %d", ErrInsufficientStock, itemID, quantity)
}

func (r *inventoryRepository) IncrementStock(ctx context.Context, executor SQLExecutor, ownerID, itemID int64, quantity int) (int, error) {
	var newStock int
	query := `UPDATE inventory_items
	          SET stock = stock + $1, updated_at = $2
	          WHERE id = $3 AND owner_id = $4
	          RETURNING stock`
	err := executor.QueryRowContext(ctx, query, quantity, time.Now().UTC(), itemID, ownerID).Scan(&newStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: incrementing stock for item %d: %v", ErrDatabaseError, itemID, err)
	}
	return newStock, nil
}

func (r *inventoryRepository) AdjustStock(ctx context.Context, executor SQLExecutor, ownerID, itemID int64, delta int) (int, error) {
	var newStock int
	query := `UPDATE inventory_items
	          SET stock = stock + $1, updated_at = $2
	          WHERE id = $3 AND owner_id = $4 AND stock + $1 >= 0
	          RETURNING stock`
	err := executor.QueryRowContext(ctx, query, delta, time.Now().UTC(), itemID, ownerID).Scan(&newStock)
	if err == nil {
		return newStock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: adjusting stock for item %d: %v", ErrDatabaseError, itemID, err)
	}
	return 0, fmt.Errorf("%w: item %d, adjustment %d", ErrInsufficientStock, itemID, delta)
}

func (r *inventoryRepository) CountItems(ctx context.Context, ownerID int64) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_items WHERE owner_id = $1`, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting inventory for owner %d: %v", ErrDatabaseError, ownerID, err)
	}
	return count, nil
}
