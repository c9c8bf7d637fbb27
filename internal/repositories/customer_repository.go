package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pharmacy_pos_backend/internal/models"
)

// CustomerRepository defines the interface for customer database operations.
type CustomerRepository interface {
	CreateCustomer(ctx context.Context, executor SQLExecutor, customer *models.Customer) (int64, error)
	GetCustomerByID(ctx context.Context, ownerID, customerID int64) (*models.Customer, error)
	GetCustomers(ctx context.Context, ownerID int64, page, pageSize int, searchTerm *string) ([]models.Customer, int, error)
	UpdateCustomer(ctx context.Context, executor SQLExecutor, customer *models.Customer) error
	DeleteCustomer(ctx context.Context, executor SQLExecutor, ownerID, customerID int64) error
	CountCustomers(ctx context.Context, ownerID int64) (int, error)
}

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new instance of CustomerRepository.
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) CreateCustomer(ctx context.Context, executor SQLExecutor, customer *models.Customer) (int64, error) {
	query := `INSERT INTO customers (owner_id, name, phone, email, address, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	now := time.Now().UTC()
	customer.CreatedAt, customer.UpdatedAt = now, now

	err := executor.QueryRowContext(ctx, query,
		customer.OwnerID, customer.Name, customer.Phone, customer.Email, customer.Address,
		customer.CreatedAt, customer.UpdatedAt,
	).Scan(&customer.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating customer")
	}
	return customer.ID, nil
}

func (r *customerRepository) GetCustomerByID(ctx context.Context, ownerID, customerID int64) (*models.Customer, error) {
	c := &models.Customer{}
	query := `SELECT id, owner_id, name, phone, email, address, created_at, updated_at
	          FROM customers WHERE id = $1 AND owner_id = $2`
	err := r.db.QueryRowContext(ctx, query, customerID, ownerID).Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting customer %d: %v", ErrDatabaseError, customerID, err)
	}
	return c, nil
}

func (r *customerRepository) GetCustomers(ctx context.Context, ownerID int64, page, pageSize int, searchTerm *string) ([]models.Customer, int, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, owner_id, name, phone, email, address, created_at, updated_at, COUNT(*) OVER() AS total_count
	    FROM customers WHERE owner_id = $1`)
	args := []interface{}{ownerID}

	if searchTerm != nil && strings.TrimSpace(*searchTerm) != "" {
		args = append(args, "%"+strings.TrimSpace(*searchTerm)+"%")
		queryBuilder.WriteString(fmt.Sprintf(" AND (name ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d)", len(args), len(args), len(args)))
	}
	queryBuilder.WriteString(" ORDER BY name ASC, id ASC")
	if limit, offset := pageOffset(page, pageSize); limit > 0 {
		args = append(args, limit, offset)
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)))
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying customers: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	totalCount := 0
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Phone, &c.Email, &c.Address,
			&c.CreatedAt, &c.UpdatedAt, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning customer: %v", ErrDatabaseError, err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating customer rows: %v", ErrDatabaseError, err)
	}
	return customers, totalCount, nil
}

func (r *customerRepository) UpdateCustomer(ctx context.Context, executor SQLExecutor, customer *models.Customer) error {
	query := `UPDATE customers SET name = $1, phone = $2, email = $3, address = $4, updated_at = $5
	          WHERE id = $6 AND owner_id = $7`
	customer.UpdatedAt = time.Now().UTC()
	result, err := executor.ExecContext(ctx, query,
		customer.Name, customer.Phone, customer.Email, customer.Address, customer.UpdatedAt,
		customer.ID, customer.OwnerID,
	)
	if err != nil {
		return classifyWriteError(err, fmt.Sprintf("updating customer %d", customer.ID))
	}
	return expectOneRow(result, "customer update")
}

func (r *customerRepository) DeleteCustomer(ctx context.Context, executor SQLExecutor, ownerID, customerID int64) error {
	result, err := executor.ExecContext(ctx, `DELETE FROM customers WHERE id = $1 AND owner_id = $2`, customerID, ownerID)
	if err != nil {
		return classifyWriteError(err, fmt.Sprintf("deleting customer %d", customerID))
	}
	return expectOneRow(result, "customer delete")
}

func (r *customerRepository) CountCustomers(ctx context.Context, ownerID int64) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers WHERE owner_id = $1`, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting customers for owner %d: %v", ErrDatabaseError, ownerID, err)
	}
	return count, nil
}
