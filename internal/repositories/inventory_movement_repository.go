package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"pharmacy_pos_backend/internal/models"
)

// InventoryMovementRepository records and lists stock ledger entries.
type InventoryMovementRepository interface {
	CreateMovement(ctx context.Context, executor SQLExecutor, movement *models.InventoryMovement) (int64, error)
	GetMovements(ctx context.Context, ownerID int64, itemID *int64, limit int) ([]models.InventoryMovement, error)
}

type inventoryMovementRepository struct {
	db *sql.DB
}

// NewInventoryMovementRepository creates a new instance of InventoryMovementRepository.
func NewInventoryMovementRepository(db *sql.DB) InventoryMovementRepository {
	return &inventoryMovementRepository{db: db}
}

func (r *inventoryMovementRepository) CreateMovement(ctx context.Context, executor SQLExecutor, movement *models.InventoryMovement) (int64, error) {
	query := `INSERT INTO inventory_movements
	            (inventory_item_id, owner_id, bill_id, movement_type, quantity_changed, reason, movement_date)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	if movement.MovementDate.IsZero() {
		movement.MovementDate = time.Now().UTC()
	}
	err := executor.QueryRowContext(ctx, query,
		movement.InventoryItemID, movement.OwnerID, movement.BillID, movement.MovementType,
		movement.QuantityChanged, movement.Reason, movement.MovementDate,
	).Scan(&movement.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating inventory movement")
	}
	return movement.ID, nil
}

func (r *inventoryMovementRepository) GetMovements(ctx context.Context, ownerID int64, itemID *int64, limit int) ([]models.InventoryMovement, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, inventory_item_id, owner_id, bill_id, movement_type, quantity_changed, reason, movement_date
	    FROM inventory_movements WHERE owner_id = $1`)
	args := []interface{}{ownerID}
	if itemID != nil {
		args = append(args, *itemID)
		queryBuilder.WriteString(fmt.Sprintf(" AND inventory_item_id = $%d", len(args)))
	}
	queryBuilder.WriteString(" ORDER BY movement_date DESC, id DESC")
	if limit > 0 {
		args = append(args, limit)
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying inventory movements: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	movements := []models.InventoryMovement{}
	for rows.Next() {
		var m models.InventoryMovement
		var billID sql.NullInt64
		if err := rows.Scan(&m.ID, &m.InventoryItemID, &m.OwnerID, &billID, &m.MovementType,
			&m.QuantityChanged, &m.Reason, &m.MovementDate); err != nil {
			return nil, fmt.Errorf("%w: scanning inventory movement: %v", ErrDatabaseError, err)
		}
		if billID.Valid {
			m.BillID = &billID.Int64
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating inventory movement rows: %v", ErrDatabaseError, err)
	}
	return movements, nil
}
