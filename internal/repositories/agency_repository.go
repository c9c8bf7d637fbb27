package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pharmacy_pos_backend/internal/models"
)

// AgencyRepository stores the tenant's suppliers.
type AgencyRepository interface {
	CreateAgency(ctx context.Context, executor SQLExecutor, agency *models.Agency) (int64, error)
	GetAgencyByID(ctx context.Context, ownerID, agencyID int64) (*models.Agency, error)
	GetAgencies(ctx context.Context, ownerID int64) ([]models.Agency, error)
	UpdateAgency(ctx context.Context, executor SQLExecutor, agency *models.Agency) error
	DeleteAgency(ctx context.Context, executor SQLExecutor, ownerID, agencyID int64) error
}

type agencyRepository struct {
	db *sql.DB
}

// NewAgencyRepository creates a new instance of AgencyRepository.
func NewAgencyRepository(db *sql.DB) AgencyRepository {
	return &agencyRepository{db: db}
}

func (r *agencyRepository) CreateAgency(ctx context.Context, executor SQLExecutor, a *models.Agency) (int64, error) {
	query := `INSERT INTO agencies (owner_id, name, contact_person, phone, email, address, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	err := executor.QueryRowContext(ctx, query,
		a.OwnerID, a.Name, a.ContactPerson, a.Phone, a.Email, a.Address, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating agency")
	}
	return a.ID, nil
}

func (r *agencyRepository) GetAgencyByID(ctx context.Context, ownerID, agencyID int64) (*models.Agency, error) {
	a := &models.Agency{}
	query := `SELECT id, owner_id, name, contact_person, phone, email, address, created_at, updated_at
	          FROM agencies WHERE id = $1 AND owner_id = $2`
	err := r.db.QueryRowContext(ctx, query, agencyID, ownerID).Scan(
		&a.ID, &a.OwnerID, &a.Name, &a.ContactPerson, &a.Phone, &a.Email, &a.Address, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting agency %d: %v", ErrDatabaseError, agencyID, err)
	}
	return a, nil
}

func (r *agencyRepository) GetAgencies(ctx context.Context, ownerID int64) ([]models.Agency, error) {
	query := `SELECT id, owner_id, name, contact_person, phone, email, address, created_at, updated_at
	          FROM agencies WHERE owner_id = $1 ORDER BY name ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying agencies: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	agencies := []models.Agency{}
	for rows.Next() {
		var a models.Agency
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name, &a.ContactPerson, &a.Phone, &a.Email,
			&a.Address, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning agency: %v", ErrDatabaseError, err)
		}
		agencies = append(agencies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating agency rows: %v", ErrDatabaseError, err)
	}
	return agencies, nil
}

func (r *agencyRepository) UpdateAgency(ctx context.Context, executor SQLExecutor, a *models.Agency) error {
	query := `UPDATE agencies SET name = $1, contact_person = $2, phone = $3, email = $4, address = $5, updated_at = $6
	          WHERE id = $7 AND owner_id = $8`
	a.UpdatedAt = time.Now().UTC()
	result, err := executor.ExecContext(ctx, query,
		a.Name, a.ContactPerson, a.Phone, a.Email, a.Address, a.UpdatedAt, a.ID, a.OwnerID,
	)
	if err != nil {
		return classifyWriteError(err, fmt.Sprintf("updating agency %d", a.ID))
	}
	return expectOneRow(result, "agency update")
}

func (r *agencyRepository) DeleteAgency(ctx context.Context, executor SQLExecutor, ownerID, agencyID int64) error {
	result, err := executor.ExecContext(ctx, `DELETE FROM agencies WHERE id = $1 AND owner_id = $2`, agencyID, ownerID)
	if err != nil {
		return classifyWriteError(err, fmt.Sprintf("deleting agency %d", agencyID))
	}
	return expectOneRow(result, "agency delete")
}
