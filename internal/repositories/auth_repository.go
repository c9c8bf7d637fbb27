package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pharmacy_pos_backend/internal/models"
)

// AuthRepository defines the interface for user-related database operations.
type AuthRepository interface {
	CreateUser(ctx context.Context, executor SQLExecutor, user *models.User) (int64, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error) // includes the password hash
	FindUserByID(ctx context.Context, userID int64) (*models.User, error)
	ListUsersWithSubscriptions(ctx context.Context) ([]models.UserWithSubscription, error)
	CountTenantUsers(ctx context.Context, ownerID int64) (int, error)
}

type authRepository struct {
	db *sql.DB
}

// NewAuthRepository creates a new instance of AuthRepository.
func NewAuthRepository(db *sql.DB) AuthRepository {
	return &authRepository{db: db}
}

const userColumns = `u.id, u.email, u.name, u.role, u.password_hash, u.shop_name, u.shop_address, u.phone,
	u.owner_id, u.is_active, u.created_at, u.updated_at`

func scanUser(s scanner, user *models.User) error {
	var ownerID sql.NullInt64
	if err := s.Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &user.PasswordHash,
		&user.ShopName, &user.ShopAddress, &user.Phone,
		&ownerID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return err
	}
	if ownerID.Valid {
		user.OwnerID = &ownerID.Int64
	}
	return nil
}

// CreateUser inserts a new user. The password hash must already be set on the model.
func (r *authRepository) CreateUser(ctx context.Context, executor SQLExecutor, user *models.User) (int64, error) {
	query := `INSERT INTO users (email, name, role, password_hash, shop_name, shop_address, phone, owner_id, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING id`

	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	user.IsActive = true

	err := executor.QueryRowContext(ctx, query,
		user.Email, user.Name, user.Role, user.PasswordHash,
		user.ShopName, user.ShopAddress, user.Phone, user.OwnerID,
		user.IsActive, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating user")
	}
	return user.ID, nil
}

func (r *authRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.email = $1`
	if err := scanUser(r.db.QueryRowContext(ctx, query, email), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding user by email: %v", ErrDatabaseError, err)
	}
	return user, nil
}

func (r *authRepository) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	user := &models.User{}
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`
	if err := scanUser(r.db.QueryRowContext(ctx, query, userID), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding user by ID %d: %v", ErrDatabaseError, userID, err)
	}
	return user, nil
}

// ListUsersWithSubscriptions returns every user with its subscription, if any.
func (r *authRepository) ListUsersWithSubscriptions(ctx context.Context) ([]models.UserWithSubscription, error) {
	query := `SELECT ` + userColumns + `,
	                 s.id, s.plan_id, s.status, s.start_date, s.end_date, s.auto_renew, s.created_at, s.updated_at
	          FROM users u
	          LEFT JOIN user_subscriptions s ON s.user_id = u.id
	          ORDER BY u.created_at DESC, u.id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: listing users: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	users := []models.UserWithSubscription{}
	for rows.Next() {
		var (
			u                      models.UserWithSubscription
			ownerID                sql.NullInt64
			subID, planID          sql.NullInt64
			status                 sql.NullString
			start, end             sql.NullTime
			autoRenew              sql.NullBool
			subCreated, subUpdated sql.NullTime
		)
		if err := rows.Scan(
			&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash,
			&u.ShopName, &u.ShopAddress, &u.Phone,
			&ownerID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
			&subID, &planID, &status, &start, &end, &autoRenew, &subCreated, &subUpdated,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning user: %v", ErrDatabaseError, err)
		}
		u.PasswordHash = ""
		if ownerID.Valid {
			u.OwnerID = &ownerID.Int64
		}
		if subID.Valid {
			u.Subscription = &models.UserSubscription{
				ID:        subID.Int64,
				UserID:    u.ID,
				PlanID:    planID.Int64,
				Status:    models.SubscriptionStatus(status.String),
				StartDate: start.Time,
				EndDate:   end.Time,
				AutoRenew: autoRenew.Bool,
				CreatedAt: subCreated.Time,
				UpdatedAt: subUpdated.Time,
			}
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating user rows: %v", ErrDatabaseError, err)
	}
	return users, nil
}

// CountTenantUsers counts the tenant account and the staff accounts it owns.
func (r *authRepository) CountTenantUsers(ctx context.Context, ownerID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE id = $1 OR owner_id = $1`
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting users for owner %d: %v", ErrDatabaseError, ownerID, err)
	}
	return count, nil
}
