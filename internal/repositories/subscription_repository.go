package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pharmacy_pos_backend/internal/models"

	"github.com/lib/pq"
)

// SubscriptionRepository covers plans and per-user subscriptions.
type SubscriptionRepository interface {
	CreatePlan(ctx context.Context, plan *models.SubscriptionPlan) (int64, error)
	GetPlanByID(ctx context.Context, planID int64) (*models.SubscriptionPlan, error)
	GetPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
	UpdatePlan(ctx context.Context, plan *models.SubscriptionPlan) error
	DeletePlan(ctx context.Context, planID int64) error

	// UpsertUserSubscription creates or replaces the single subscription of a user.
	UpsertUserSubscription(ctx context.Context, sub *models.UserSubscription) (int64, error)
	GetSubscriptionByID(ctx context.Context, subscriptionID int64) (*models.UserSubscription, error)
	GetSubscriptionByUserID(ctx context.Context, userID int64) (*models.UserSubscription, error)
	UpdateSubscriptionStatus(ctx context.Context, subscriptionID int64, status models.SubscriptionStatus) error
	RenewSubscription(ctx context.Context, subscriptionID int64, start, end time.Time) error
	// ExpireDue flips every active subscription whose end date is before now to expired.
	ExpireDue(ctx context.Context, now time.Time) ([]int64, error)
}

type subscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a new instance of SubscriptionRepository.
func NewSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

const planColumns = `id, name, price, currency, billing_cycle, features, max_users, max_inventory, max_customers, created_at, updated_at`

func scanPlan(s scanner, p *models.SubscriptionPlan) error {
	var features pq.StringArray
	if err := s.Scan(
		&p.ID, &p.Name, &p.Price, &p.Currency, &p.BillingCycle, &features,
		&p.MaxUsers, &p.MaxInventory, &p.MaxCustomers, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return err
	}
	p.Features = []string(features)
	if p.Features == nil {
		p.Features = []string{}
	}
	return nil
}

func (r *subscriptionRepository) CreatePlan(ctx context.Context, p *models.SubscriptionPlan) (int64, error) {
	query := `INSERT INTO subscription_plans
	            (name, price, currency, billing_cycle, features, max_users, max_inventory, max_customers, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id`
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	err := r.db.QueryRowContext(ctx, query,
		p.Name, p.Price, p.Currency, p.BillingCycle, pq.Array(p.Features),
		p.MaxUsers, p.MaxInventory, p.MaxCustomers, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating subscription plan")
	}
	return p.ID, nil
}

func (r *subscriptionRepository) GetPlanByID(ctx context.Context, planID int64) (*models.SubscriptionPlan, error) {
	p := &models.SubscriptionPlan{}
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = $1`
	if err := scanPlan(r.db.QueryRowContext(ctx, query, planID), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting plan %d: %v", ErrDatabaseError, planID, err)
	}
	return p, nil
}

func (r *subscriptionRepository) GetPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+planColumns+` FROM subscription_plans ORDER BY price ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying plans: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	plans := []models.SubscriptionPlan{}
	for rows.Next() {
		var p models.SubscriptionPlan
		if err := scanPlan(rows, &p); err != nil {
			return nil, fmt.Errorf("%w: scanning plan: %v", ErrDatabaseError, err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating plan rows: %v", ErrDatabaseError, err)
	}
	return plans, nil
}

func (r *subscriptionRepository) UpdatePlan(ctx context.Context, p *models.SubscriptionPlan) error {
	query := `UPDATE subscription_plans
	          SET name = $1, price = $2, currency = $3, billing_cycle = $4, features = $5,
	              max_users = $6, max_inventory = $7, max_customers = $8, updated_at = $9
	          WHERE id = $10`
	p.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		p.Name, p.Price, p.Currency, p.BillingCycle, pq.Array(p.Features),
		p.MaxUsers, p.MaxInventory, p.MaxCustomers, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return classifyWriteError(err, fmt.Sprintf("updating plan %d", p.ID))
	}
	return expectOneRow(result, "plan update")
}

// DeletePlan fails with ErrReferenced while any subscription still points at the plan.
func (r *subscriptionRepository) DeletePlan(ctx context.Context, planID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subscription_plans WHERE id = $1`, planID)
	if err != nil {
		return classifyWriteError(err, fmt.Sprintf("deleting plan %d", planID))
	}
	return expectOneRow(result, "plan delete")
}

const subscriptionColumns = `id, user_id, plan_id, status, start_date, end_date, auto_renew, created_at, updated_at`

func scanSubscription(s scanner, sub *models.UserSubscription) error {
	return s.Scan(
		&sub.ID, &sub.UserID, &sub.PlanID, &sub.Status, &sub.StartDate, &sub.EndDate,
		&sub.AutoRenew, &sub.CreatedAt, &sub.UpdatedAt,
	)
}

func (r *subscriptionRepository) UpsertUserSubscription(ctx context.Context, sub *models.UserSubscription) (int64, error) {
	query := `INSERT INTO user_subscriptions
	            (user_id, plan_id, status, start_date, end_date, auto_renew, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	          ON CONFLICT (user_id) DO UPDATE
	            SET plan_id = EXCLUDED.plan_id, status = EXCLUDED.status,
	                start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date,
	                auto_renew = EXCLUDED.auto_renew, updated_at = EXCLUDED.updated_at
	          RETURNING id, created_at`
	now := time.Now().UTC()
	sub.UpdatedAt = now
	err := r.db.QueryRowContext(ctx, query,
		sub.UserID, sub.PlanID, sub.Status, sub.StartDate, sub.EndDate, sub.AutoRenew, now,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return 0, classifyWriteError(err, fmt.Sprintf("upserting subscription for user %d", sub.UserID))
	}
	return sub.ID, nil
}

func (r *subscriptionRepository) GetSubscriptionByID(ctx context.Context, subscriptionID int64) (*models.UserSubscription, error) {
	return r.getSubscription(ctx, `WHERE id = $1`, subscriptionID)
}

func (r *subscriptionRepository) GetSubscriptionByUserID(ctx context.Context, userID int64) (*models.UserSubscription, error) {
	return r.getSubscription(ctx, `WHERE user_id = $1`, userID)
}

func (r *subscriptionRepository) getSubscription(ctx context.Context, where string, arg int64) (*models.UserSubscription, error) {
	sub := &models.UserSubscription{}
	query := `SELECT ` + subscriptionColumns + ` FROM user_subscriptions ` + where
	if err := scanSubscription(r.db.QueryRowContext(ctx, query, arg), sub); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting subscription: %v", ErrDatabaseError, err)
	}
	return sub, nil
}

func (r *subscriptionRepository) UpdateSubscriptionStatus(ctx context.Context, subscriptionID int64, status models.SubscriptionStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE user_subscriptions SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), subscriptionID,
	)
	if err != nil {
		return classifyWriteError(err, fmt.Sprintf("updating subscription %d status", subscriptionID))
	}
	return expectOneRow(result, "subscription status update")
}

// RenewSubscription reactivates the subscription over a fresh window.
func (r *subscriptionRepository) RenewSubscription(ctx context.Context, subscriptionID int64, start, end time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE user_subscriptions SET status = $1, start_date = $2, end_date = $3, updated_at = $4 WHERE id = $5`,
		models.SubscriptionActive, start, end, time.Now().UTC(), subscriptionID,
	)
	if err != nil {
		return classifyWriteError(err, fmt.Sprintf("renewing subscription %d", subscriptionID))
	}
	return expectOneRow(result, "subscription renew")
}

func (r *subscriptionRepository) ExpireDue(ctx context.Context, now time.Time) ([]int64, error) {
	query := `UPDATE user_subscriptions
	          SET status = $1, updated_at = $2
	          WHERE status = $3 AND end_date < $2
	          RETURNING id`
	rows, err := r.db.QueryContext(ctx, query, models.SubscriptionExpired, now, models.SubscriptionActive)
	if err != nil {
		return nil, fmt.Errorf("%w: expiring subscriptions: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning expired subscription id: %v", ErrDatabaseError, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating expired subscriptions: %v", ErrDatabaseError, err)
	}
	return ids, nil
}
