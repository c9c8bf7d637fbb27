package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pharmacy_pos_backend/internal/metrics"
	"pharmacy_pos_backend/internal/models"
	"pharmacy_pos_backend/internal/repositories"
	"pharmacy_pos_backend/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// LimitPolicy decides what CheckLimit does once a plan limit is reached.
type LimitPolicy string

const (
	LimitPolicyWarn  LimitPolicy = "warn"  // log and allow
	LimitPolicyBlock LimitPolicy = "block" // reject with ErrLimitExceeded
)

// Subscription actions accepted by ApplyAction.
const (
	ActionCancel = "cancel"
	ActionRenew  = "renew"
)

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	UserID int64
	Role   models.Role
}

// IsAdmin reports whether the caller has the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// AssignSubscriptionRequest DTO
type AssignSubscriptionRequest struct {
	UserID    int64 `json:"userId"`
	PlanID    int64 `json:"planId"`
	AutoRenew bool  `json:"autoRenew"`
}

// SubscriptionActionRequest DTO
type SubscriptionActionRequest struct {
	Action         string `json:"action"`
	SubscriptionID int64  `json:"subscriptionId"`
}

// SubscriptionView is a subscription together with its freshness at read time.
type SubscriptionView struct {
	Subscription     *models.UserSubscription `json:"subscription"`
	IsCurrentlyValid bool                     `json:"isCurrentlyValid"`
}

// UsageGuard is consulted before creating a limited resource.
type UsageGuard interface {
	CheckLimit(ctx context.Context, userID int64, resource models.UsageResource) error
}

// SubscriptionService drives the subscription lifecycle and usage reporting.
type SubscriptionService interface {
	UsageGuard
	Assign(ctx context.Context, req AssignSubscriptionRequest) (*models.UserSubscription, error)
	Cancel(ctx context.Context, actor Actor, subscriptionID int64) (*models.UserSubscription, error)
	Renew(ctx context.Context, actor Actor, subscriptionID int64) (*models.UserSubscription, error)
	ApplyAction(ctx context.Context, actor Actor, req SubscriptionActionRequest) (*models.UserSubscription, error)
	SweepExpired(ctx context.Context) ([]int64, error)
	GetUsage(ctx context.Context, userID int64) (*models.Usage, error)
	GetForUser(ctx context.Context, userID int64) (*SubscriptionView, error)
}

type subscriptionService struct {
	subRepo       repositories.SubscriptionRepository
	authRepo      repositories.AuthRepository
	inventoryRepo repositories.InventoryRepository
	customerRepo  repositories.CustomerRepository
	plans         PlanService
	metrics       *metrics.Metrics
	limitPolicy   LimitPolicy
	now           func() time.Time
}

// NewSubscriptionService creates a SubscriptionService. Any limitPolicy other
// than LimitPolicyBlock only logs when a limit is reached.
func NewSubscriptionService(
	sr repositories.SubscriptionRepository,
	ar repositories.AuthRepository,
	ir repositories.InventoryRepository,
	cr repositories.CustomerRepository,
	plans PlanService,
	m *metrics.Metrics,
	limitPolicy LimitPolicy,
) SubscriptionService {
	return &subscriptionService{
		subRepo:       sr,
		authRepo:      ar,
		inventoryRepo: ir,
		customerRepo:  cr,
		plans:         plans,
		metrics:       m,
		limitPolicy:   limitPolicy,
		now:           time.Now,
	}
}

func (s *subscriptionService) Assign(ctx context.Context, req AssignSubscriptionRequest) (*models.UserSubscription, error) {
	if req.UserID <= 0 || req.PlanID <= 0 {
		return nil, fmt.Errorf("%w: userId and planId are required", ErrValidation)
	}
	if _, err := s.authRepo.FindUserByID(ctx, req.UserID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: loading user %d: %v", ErrPersistence, req.UserID, err)
	}
	plan, err := s.plans.GetPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	start := s.now().UTC()
	sub := &models.UserSubscription{
		UserID:    req.UserID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionActive,
		StartDate: start,
		EndDate:   models.AddCycle(start, plan.BillingCycle),
		AutoRenew: req.AutoRenew,
	}
	if _, err := s.subRepo.UpsertUserSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("%w: assigning subscription: %v", ErrPersistence, err)
	}
	sub.Plan = plan

	s.metrics.RecordSubscriptionEvent("assign")
	utils.LogInfo("Subscription assigned", map[string]interface{}{
		"subscription_id": sub.ID, "user_id": sub.UserID, "plan_id": plan.ID, "end_date": sub.EndDate,
	})
	return sub, nil
}

// loadOwned fetches a subscription the actor is allowed to act on.
func (s *subscriptionService) loadOwned(ctx context.Context, actor Actor, subscriptionID int64) (*models.UserSubscription, error) {
	if subscriptionID <= 0 {
		return nil, fmt.Errorf("%w: subscriptionId is required", ErrValidation)
	}
	sub, err := s.subRepo.GetSubscriptionByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("%w: loading subscription %d: %v", ErrPersistence, subscriptionID, err)
	}
	if !actor.IsAdmin() && sub.UserID != actor.UserID {
		return nil, fmt.Errorf("%w: subscription %d belongs to another user", ErrForbidden, subscriptionID)
	}
	return sub, nil
}

func (s *subscriptionService) transition(ctx context.Context, sub *models.UserSubscription, to models.SubscriptionStatus) error {
	if !models.CanTransition(sub.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sub.Status, to)
	}
	if err := s.subRepo.UpdateSubscriptionStatus(ctx, sub.ID, to); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrSubscriptionNotFound
		}
		return fmt.Errorf("%w: updating subscription %d: %v", ErrPersistence, sub.ID, err)
	}
	sub.Status = to
	return nil
}

// Cancel leaves the end date untouched.
func (s *subscriptionService) Cancel(ctx context.Context, actor Actor, subscriptionID int64) (*models.UserSubscription, error) {
	sub, err := s.loadOwned(ctx, actor, subscriptionID)
	if err != nil {
		return nil, err
	}
	previous := sub.Status
	if err := s.transition(ctx, sub, models.SubscriptionCancelled); err != nil {
		return nil, err
	}

	s.metrics.RecordSubscriptionEvent("cancel")
	utils.LogInfo("Subscription cancelled", map[string]interface{}{
		"subscription_id": sub.ID, "user_id": sub.UserID, "previous_status": previous,
	})
	return sub, nil
}

// Renew extends from the current time, not from the old end date, and keeps the start date.
func (s *subscriptionService) Renew(ctx context.Context, actor Actor, subscriptionID int64) (*models.UserSubscription, error) {
	sub, err := s.loadOwned(ctx, actor, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(sub.Status, models.SubscriptionActive) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sub.Status, models.SubscriptionActive)
	}
	plan, err := s.plans.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}

	end := models.AddCycle(s.now().UTC(), plan.BillingCycle)
	if err := s.subRepo.RenewSubscription(ctx, sub.ID, sub.StartDate, end); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("%w: renewing subscription %d: %v", ErrPersistence, sub.ID, err)
	}
	sub.Status = models.SubscriptionActive
	sub.EndDate = end
	sub.Plan = plan

	s.metrics.RecordSubscriptionEvent("renew")
	utils.LogInfo("Subscription renewed", map[string]interface{}{
		"subscription_id": sub.ID, "user_id": sub.UserID, "end_date": end,
	})
	return sub, nil
}

func (s *subscriptionService) ApplyAction(ctx context.Context, actor Actor, req SubscriptionActionRequest) (*models.UserSubscription, error) {
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case ActionCancel:
		return s.Cancel(ctx, actor, req.SubscriptionID)
	case ActionRenew:
		return s.Renew(ctx, actor, req.SubscriptionID)
	default:
		return nil, fmt.Errorf("%w: action must be cancel or renew", ErrValidation)
	}
}

// SweepExpired moves every lapsed active subscription to expired in one statement.
func (s *subscriptionService) SweepExpired(ctx context.Context) ([]int64, error) {
	ids, err := s.subRepo.ExpireDue(ctx, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: sweeping subscriptions: %v", ErrPersistence, err)
	}
	s.metrics.SubscriptionsExpired.Add(float64(len(ids)))
	if len(ids) > 0 {
		utils.LogInfo("Expired subscriptions swept", map[string]interface{}{"count": len(ids), "subscription_ids": ids})
	} else {
		utils.LogDebug("Expiry sweep found nothing to expire")
	}
	return ids, nil
}

// currentPlan returns the user's subscription and plan. Only active and
// inactive subscriptions count for usage reporting.
func (s *subscriptionService) currentPlan(ctx context.Context, userID int64) (*models.UserSubscription, *models.SubscriptionPlan, error) {
	sub, err := s.subRepo.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, ErrSubscriptionNotFound
		}
		return nil, nil, fmt.Errorf("%w: loading subscription for user %d: %v", ErrPersistence, userID, err)
	}
	if sub.Status != models.SubscriptionActive && sub.Status != models.SubscriptionInactive {
		return nil, nil, fmt.Errorf("%w: user %d has a %s subscription", ErrSubscriptionNotFound, userID, sub.Status)
	}
	plan, err := s.plans.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, nil, err
	}
	return sub, plan, nil
}

func (s *subscriptionService) GetUsage(ctx context.Context, userID int64) (*models.Usage, error) {
	_, plan, err := s.currentPlan(ctx, userID)
	if err != nil {
		return nil, err
	}

	usage := &models.Usage{
		Limits: models.UsageLimits{
			MaxUsers:     plan.MaxUsers,
			MaxInventory: plan.MaxInventory,
			MaxCustomers: plan.MaxCustomers,
		},
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		usage.CurrentUsers, err = s.authRepo.CountTenantUsers(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		usage.CurrentInventory, err = s.inventoryRepo.CountItems(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		usage.CurrentCustomers, err = s.customerRepo.CountCustomers(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: counting usage for user %d: %v", ErrPersistence, userID, err)
	}
	return usage, nil
}

func (s *subscriptionService) GetForUser(ctx context.Context, userID int64) (*SubscriptionView, error) {
	sub, err := s.subRepo.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("%w: loading subscription for user %d: %v", ErrPersistence, userID, err)
	}
	plan, err := s.plans.GetPlan(ctx, sub.PlanID)
	if err != nil && !errors.Is(err, ErrPlanNotFound) {
		return nil, err
	}
	sub.Plan = plan
	return &SubscriptionView{
		Subscription:     sub,
		IsCurrentlyValid: models.IsCurrentlyValid(sub, s.now()),
	}, nil
}

// CheckLimit compares the current count of resource against the plan maximum.
// A zero maximum is unlimited. Under the warn policy an exceeded limit is only
// logged; under block it is rejected with ErrLimitExceeded.
func (s *subscriptionService) CheckLimit(ctx context.Context, userID int64, resource models.UsageResource) error {
	_, plan, err := s.currentPlan(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			utils.LogWarn("Creating resource without a usable subscription", map[string]interface{}{
				"user_id": userID, "resource": resource,
			})
			return nil
		}
		return err
	}

	var (
		limit   int
		countFn func(context.Context, int64) (int, error)
	)
	switch resource {
	case models.ResourceUsers:
		limit, countFn = plan.MaxUsers, s.authRepo.CountTenantUsers
	case models.ResourceInventory:
		limit, countFn = plan.MaxInventory, s.inventoryRepo.CountItems
	case models.ResourceCustomers:
		limit, countFn = plan.MaxCustomers, s.customerRepo.CountCustomers
	default:
		return fmt.Errorf("%w: unknown resource %q", ErrValidation, resource)
	}
	if limit == 0 {
		return nil
	}

	current, err := countFn(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: counting %s for user %d: %v", ErrPersistence, resource, userID, err)
	}
	if current < limit {
		return nil
	}

	fields := map[string]interface{}{
		"user_id": userID, "resource": resource, "current": current, "limit": limit, "plan_id": plan.ID,
	}
	if s.limitPolicy == LimitPolicyBlock {
		utils.LogWarn("Plan limit reached, rejecting create", fields)
		return fmt.Errorf("%w: %s limit of %d reached", ErrLimitExceeded, resource, limit)
	}
	utils.LogWarn("Plan limit reached", fields)
	return nil
}
