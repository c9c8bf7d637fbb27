package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pharmacy_pos_backend/internal/models"
)

// BillRepository defines the interface for invoice database operations.
type BillRepository interface {
	CreateBill(ctx context.Context, executor SQLExecutor, bill *models.Bill) (int64, error)
	CreateBillItem(ctx context.Context, executor SQLExecutor, item *models.BillLineItem) (int64, error)
	GetBillByID(ctx context.Context, executor SQLExecutor, ownerID, billID int64) (*models.Bill, error)
	GetBillItems(ctx context.Context, executor SQLExecutor, billID int64) ([]models.BillLineItem, error)
	GetBills(ctx context.Context, ownerID int64, filters models.BillFilters) ([]models.Bill, int, error)
	DeleteBill(ctx context.Context, executor SQLExecutor, ownerID, billID int64) error
}

type billRepository struct {
	db *sql.DB
}

// NewBillRepository creates a new instance of BillRepository.
func NewBillRepository(db *sql.DB) BillRepository {
	return &billRepository{db: db}
}

const billColumns = `id, owner_id, bill_number, customer_id, customer_name, subtotal, tax_percent, tax_amount,
	discount, grand_total, payment_method, bill_date, status`

func scanBill(s scanner, b *models.Bill, extra ...interface{}) error {
	dest := []interface{}{
		&b.ID, &b.OwnerID, &b.BillID, &b.CustomerID, &b.CustomerName, &b.Subtotal, &b.Tax, &b.TaxAmount,
		&b.Discount, &b.GrandTotal, &b.PaymentMethod, &b.BillDate, &b.Status,
	}
	return s.Scan(append(dest, extra...)...)
}

func (r *billRepository) CreateBill(ctx context.Context, executor SQLExecutor, b *models.Bill) (int64, error) {
	query := `INSERT INTO bills
	            (owner_id, bill_number, customer_id, customer_name, subtotal, tax_percent, tax_amount,
	             discount, grand_total, payment_method, bill_date, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          RETURNING id`
	err := executor.QueryRowContext(ctx, query,
		b.OwnerID, b.BillID, b.CustomerID, b.CustomerName, b.Subtotal, b.Tax, b.TaxAmount,
		b.Discount, b.GrandTotal, b.PaymentMethod, b.BillDate, b.Status,
	).Scan(&b.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating bill")
	}
	return b.ID, nil
}

func (r *billRepository) CreateBillItem(ctx context.Context, executor SQLExecutor, item *models.BillLineItem) (int64, error) {
	query := `INSERT INTO bill_items (bill_id, position, inventory_item_id, name, quantity, price)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	err := executor.QueryRowContext(ctx, query,
		item.BillID, item.Position, item.MedicineID, item.Name, item.Quantity, item.Price,
	).Scan(&item.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating bill item")
	}
	return item.ID, nil
}

func (r *billRepository) GetBillByID(ctx context.Context, executor SQLExecutor, ownerID, billID int64) (*models.Bill, error) {
	if executor == nil {
		executor = r.db
	}
	b := &models.Bill{}
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = $1 AND owner_id = $2`
	if err := scanBill(executor.QueryRowContext(ctx, query, billID, ownerID), b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting bill %d: %v", ErrDatabaseError, billID, err)
	}
	return b, nil
}

// GetBillItems returns the line items in their original cart order.
func (r *billRepository) GetBillItems(ctx context.Context, executor SQLExecutor, billID int64) ([]models.BillLineItem, error) {
	if executor == nil {
		executor = r.db
	}
	query := `SELECT id, bill_id, position, inventory_item_id, name, quantity, price
	          FROM bill_items WHERE bill_id = $1 ORDER BY position ASC, id ASC`
	rows, err := executor.QueryContext(ctx, query, billID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying items for bill %d: %v", ErrDatabaseError, billID, err)
	}
	defer rows.Close()

	items := []models.BillLineItem{}
	for rows.Next() {
		var it models.BillLineItem
		if err := rows.Scan(&it.ID, &it.BillID, &it.Position, &it.MedicineID, &it.Name, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("%w: scanning bill item: %v", ErrDatabaseError, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating bill item rows: %v", ErrDatabaseError, err)
	}
	return items, nil
}

// GetBills lists invoices most recent first.
func (r *billRepository) GetBills(ctx context.Context, ownerID int64, filters models.BillFilters) ([]models.Bill, int, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + billColumns + `, COUNT(*) OVER() AS total_count FROM bills`)

	conditions := []string{"owner_id = $1"}
	args := []interface{}{ownerID}
	if filters.CustomerID != nil {
		args = append(args, *filters.CustomerID)
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filters.DateFrom != nil {
		args = append(args, *filters.DateFrom)
		conditions = append(conditions, fmt.Sprintf("bill_date >= $%d", len(args)))
	}
	if filters.DateTo != nil {
		args = append(args, *filters.DateTo)
		conditions = append(conditions, fmt.Sprintf("bill_date < $%d", len(args)))
	}
	queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	queryBuilder.WriteString(" ORDER BY bill_date DESC, id DESC")

	if limit, offset := pageOffset(filters.Page, filters.PageSize); limit > 0 {
		args = append(args, limit, offset)
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)))
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying bills: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	bills := []models.Bill{}
	totalCount := 0
	for rows.Next() {
		var b models.Bill
		if err := scanBill(rows, &b, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning bill: %v", ErrDatabaseError, err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating bill rows: %v", ErrDatabaseError, err)
	}
	return bills, totalCount, nil
}

// DeleteBill removes the invoice; its items go with it via ON DELETE CASCADE.
func (r *billRepository) DeleteBill(ctx context.Context, executor SQLExecutor, ownerID, billID int64) error {
	result, err := executor.ExecContext(ctx, `DELETE FROM bills WHERE id = $1 AND owner_id = $2`, billID, ownerID)
	if err != nil {
		return classifyWriteError(err, fmt.Sprintf("deleting bill %d", billID))
	}
	return expectOneRow(result, "bill delete")
}
