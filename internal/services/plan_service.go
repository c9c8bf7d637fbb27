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

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
)

const defaultCurrency = "INR"

// CreatePlanRequest DTO
type CreatePlanRequest struct {
	Name         string          `json:"name" binding:"required"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	BillingCycle string          `json:"billingCycle" binding:"required"`
	Features     []string        `json:"features"`
	MaxUsers     int             `json:"maxUsers"`
	MaxInventory int             `json:"maxInventory"`
	MaxCustomers int             `json:"maxCustomers"`
}

// UpdatePlanRequest DTO. Nil fields are left unchanged.
type UpdatePlanRequest struct {
	Name         *string          `json:"name"`
	Price        *decimal.Decimal `json:"price"`
	Currency     *string          `json:"currency"`
	BillingCycle *string          `json:"billingCycle"`
	Features     []string         `json:"features"`
	MaxUsers     *int             `json:"maxUsers"`
	MaxInventory *int             `json:"maxInventory"`
	MaxCustomers *int             `json:"maxCustomers"`
}

// PlanService manages subscription plans. Reads go through an expiring LRU.
type PlanService interface {
	CreatePlan(ctx context.Context, req CreatePlanRequest) (*models.SubscriptionPlan, error)
	GetPlan(ctx context.Context, planID int64) (*models.SubscriptionPlan, error)
	ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
	UpdatePlan(ctx context.Context, planID int64, req UpdatePlanRequest) (*models.SubscriptionPlan, error)
	DeletePlan(ctx context.Context, planID int64) error
}

type planService struct {
	repo  repositories.SubscriptionRepository
	cache *expirable.LRU[int64, models.SubscriptionPlan]
}

// NewPlanService creates a PlanService whose cache holds up to cacheSize plans for ttl.
func NewPlanService(repo repositories.SubscriptionRepository, cacheSize int, ttl time.Duration) PlanService {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	return &planService{
		repo:  repo,
		cache: expirable.NewLRU[int64, models.SubscriptionPlan](cacheSize, nil, ttl),
	}
}

func validatePlan(p *models.SubscriptionPlan) error {
	if !models.IsValidPlanName(string(p.Name)) {
		return fmt.Errorf("%w: name must be basic, premium or enterprise", ErrValidation)
	}
	if !models.IsValidBillingCycle(string(p.BillingCycle)) {
		return fmt.Errorf("%w: billingCycle must be monthly, 6months or yearly", ErrValidation)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	if len(p.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3 letter code", ErrValidation)
	}
	if p.MaxUsers < 0 || p.MaxInventory < 0 || p.MaxCustomers < 0 {
		return fmt.Errorf("%w: limits cannot be negative", ErrValidation)
	}
	return nil
}

func normalizeFeatures(features []string) []string {
	out := make([]string, 0, len(features))
	for _, f := range features {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func (s *planService) CreatePlan(ctx context.Context, req CreatePlanRequest) (*models.SubscriptionPlan, error) {
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	plan := &models.SubscriptionPlan{
		Name:         models.PlanName(strings.ToLower(strings.TrimSpace(req.Name))),
		Price:        utils.RoundMoney(req.Price),
		Currency:     currency,
		BillingCycle: models.BillingCycle(strings.TrimSpace(req.BillingCycle)),
		Features:     normalizeFeatures(req.Features),
		MaxUsers:     req.MaxUsers,
		MaxInventory: req.MaxInventory,
		MaxCustomers: req.MaxCustomers,
	}
	if err := validatePlan(plan); err != nil {
		return nil, err
	}
	if _, err := s.repo.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("%w: creating plan: %v", ErrPersistence, err)
	}
	s.cache.Add(plan.ID, *plan)
	utils.LogInfo("Subscription plan created", map[string]interface{}{"plan_id": plan.ID, "name": plan.Name})
	return plan, nil
}

func (s *planService) GetPlan(ctx context.Context, planID int64) (*models.SubscriptionPlan, error) {
	if cached, ok := s.cache.Get(planID); ok {
		return &cached, nil
	}
	plan, err := s.repo.GetPlanByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("%w: loading plan %d: %v", ErrPersistence, planID, err)
	}
	s.cache.Add(plan.ID, *plan)
	return plan, nil
}

func (s *planService) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	plans, err := s.repo.GetPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing plans: %v", ErrPersistence, err)
	}
	return plans, nil
}

func (s *planService) UpdatePlan(ctx context.Context, planID int64, req UpdatePlanRequest) (*models.SubscriptionPlan, error) {
	plan, err := s.repo.GetPlanByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("%w: loading plan %d: %v", ErrPersistence, planID, err)
	}

	if req.Name != nil {
		plan.Name = models.PlanName(strings.ToLower(strings.TrimSpace(*req.Name)))
	}
	if req.Price != nil {
		plan.Price = utils.RoundMoney(*req.Price)
	}
	if req.Currency != nil {
		plan.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.BillingCycle != nil {
		plan.BillingCycle = models.BillingCycle(strings.TrimSpace(*req.BillingCycle))
	}
	if req.Features != nil {
		plan.Features = normalizeFeatures(req.Features)
	}
	if req.MaxUsers != nil {
		plan.MaxUsers = *req.MaxUsers
	}
	if req.MaxInventory != nil {
		plan.MaxInventory = *req.MaxInventory
	}
	if req.MaxCustomers != nil {
		plan.MaxCustomers = *req.MaxCustomers
	}
	if err := validatePlan(plan); err != nil {
		return nil, err
	}

	s.cache.Remove(planID)
	if err := s.repo.UpdatePlan(ctx, plan); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("%w: updating plan %d: %v", ErrPersistence, planID, err)
	}
	return plan, nil
}

func (s *planService) DeletePlan(ctx context.Context, planID int64) error {
	s.cache.Remove(planID)
	if err := s.repo.DeletePlan(ctx, planID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return ErrPlanNotFound
		case errors.Is(err, repositories.ErrReferenced):
			return fmt.Errorf("%w: plan %d has subscribers", ErrInUse, planID)
		}
		return fmt.Errorf("%w: deleting plan %d: %v", ErrPersistence, planID, err)
	}
	utils.LogInfo("Subscription plan deleted", map[string]interface{}{"plan_id": planID})
	return nil
}
