package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanName is the tier of a subscription plan.
type PlanName string

const (
	PlanBasic      PlanName = "basic"
	PlanPremium    PlanName = "premium"
	PlanEnterprise PlanName = "enterprise"
)

// IsValidPlanName reports whether the name is a known tier.
func IsValidPlanName(name string) bool {
	switch PlanName(name) {
	case PlanBasic, PlanPremium, PlanEnterprise:
		return true
	default:
		return false
	}
}

// BillingCycle is the recurrence unit governing a subscription's validity window.
type BillingCycle string

const (
	CycleMonthly   BillingCycle = "monthly"
	CycleSixMonths BillingCycle = "6months"
	CycleYearly    BillingCycle = "yearly"
)

// IsValidBillingCycle reports whether c is a supported cycle.
func IsValidBillingCycle(c string) bool {
	switch BillingCycle(c) {
	case CycleMonthly, CycleSixMonths, CycleYearly:
		return true
	default:
		return false
	}
}

// AddCycle advances t by one billing cycle using calendar arithmetic.
// Month overflow is normalized the way time.AddDate does it, so
// Jan 31 + 1 month lands on Mar 3 (Mar 2 in a leap year).
func AddCycle(t time.Time, cycle BillingCycle) time.Time {
	switch cycle {
	case CycleSixMonths:
		return t.AddDate(0, 6, 0)
	case CycleYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

// SubscriptionPlan is admin-managed reference data. A zero limit means unlimited.
type SubscriptionPlan struct {
	ID           int64           `json:"id" db:"id"`
	Name         PlanName        `json:"name" db:"name"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Currency     string          `json:"currency" db:"currency"`
	BillingCycle BillingCycle    `json:"billingCycle" db:"billing_cycle"`
	Features     []string        `json:"features" db:"features"`
	MaxUsers     int             `json:"maxUsers" db:"max_users"`
	MaxInventory int             `json:"maxInventory" db:"max_inventory"`
	MaxCustomers int             `json:"maxCustomers" db:"max_customers"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// SubscriptionStatus is the lifecycle state of a UserSubscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionInactive  SubscriptionStatus = "inactive"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// subscriptionTransitions lists the allowed target states per source state.
// Renewal and re-assignment may always return a subscription to active.
var subscriptionTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionActive:    {SubscriptionActive, SubscriptionExpired, SubscriptionCancelled},
	SubscriptionInactive:  {SubscriptionActive, SubscriptionCancelled},
	SubscriptionExpired:   {SubscriptionActive, SubscriptionCancelled},
	SubscriptionCancelled: {SubscriptionActive, SubscriptionCancelled},
}

// CanTransition reports whether a subscription may move from one status to another.
func CanTransition(from, to SubscriptionStatus) bool {
	for _, allowed := range subscriptionTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// UserSubscription binds a user to a plan for a validity window.
// There is at most one per user.
type UserSubscription struct {
	ID        int64              `json:"id" db:"id"`
	UserID    int64              `json:"userId" db:"user_id"`
	PlanID    int64              `json:"planId" db:"plan_id"`
	Status    SubscriptionStatus `json:"status" db:"status"`
	StartDate time.Time          `json:"startDate" db:"start_date"`
	EndDate   time.Time          `json:"endDate" db:"end_date"`
	AutoRenew bool               `json:"autoRenew" db:"auto_renew"`
	CreatedAt time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time          `json:"updatedAt" db:"updated_at"`
	Plan      *SubscriptionPlan  `json:"plan,omitempty"`
}

// IsCurrentlyValid is the authoritative freshness check. The stored status can
// lag behind the clock until the expiry sweep runs.
func IsCurrentlyValid(sub *UserSubscription, now time.Time) bool {
	if sub == nil {
		return false
	}
	return sub.Status == SubscriptionActive && !sub.EndDate.Before(now)
}

// UsageLimits mirrors the plan maxima.
type UsageLimits struct {
	MaxUsers     int `json:"maxUsers"`
	MaxInventory int `json:"maxInventory"`
	MaxCustomers int `json:"maxCustomers"`
}

// Usage reports tenant counts against the plan.
type Usage struct {
	CurrentUsers     int         `json:"currentUsers"`
	CurrentInventory int         `json:"currentInventory"`
	CurrentCustomers int         `json:"currentCustomers"`
	Limits           UsageLimits `json:"limits"`
}

// UsageResource names a limited resource.
type UsageResource string

const (
	ResourceUsers     UsageResource = "users"
	ResourceInventory UsageResource = "inventory"
	ResourceCustomers UsageResource = "customers"
)
