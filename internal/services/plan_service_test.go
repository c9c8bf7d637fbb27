package services

import (
	"context"
	"testing"
	"time"

	"pharmacy_pos_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanService_CreateValidates(t *testing.T) {
	svc := NewPlanService(newMemStore(), 8, time.Minute)

	tests := []struct {
		name string
		req  CreatePlanRequest
	}{
		{"unknown name", CreatePlanRequest{Name: "gold", BillingCycle: "monthly"}},
		{"unknown cycle", CreatePlanRequest{Name: "basic", BillingCycle: "weekly"}},
		{"negative price", CreatePlanRequest{Name: "basic", BillingCycle: "monthly", Price: mustDecimal("-1")}},
		{"bad currency", CreatePlanRequest{Name: "basic", BillingCycle: "monthly", Currency: "RUPEE"}},
		{"negative limit", CreatePlanRequest{Name: "basic", BillingCycle: "monthly", MaxUsers: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePlan(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestPlanService_CreateDefaults(t *testing.T) {
	svc := NewPlanService(newMemStore(), 8, time.Minute)

	plan, err := svc.CreatePlan(context.Background(), CreatePlanRequest{
		Name: " Premium ", BillingCycle: "6months", Price: mustDecimal("1499.999"),
		Features: []string{"billing", " ", "reports"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremium, plan.Name)
	assert.Equal(t, "INR", plan.Currency)
	assert.Equal(t, "1500.00", plan.Price.StringFixed(2))
	assert.Equal(t, []string{"billing", "reports"}, plan.Features)
}

func TestPlanService_CachesLookupsAndInvalidatesOnUpdate(t *testing.T) {
	store := newMemStore()
	plan := store.addPlan(models.SubscriptionPlan{Name: models.PlanBasic, BillingCycle: models.CycleMonthly, Currency: "INR", MaxCustomers: 10})
	svc := NewPlanService(store, 8, time.Minute)

	_, err := svc.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	_, err = svc.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, store.planLookups)

	limit := 25
	_, err = svc.UpdatePlan(context.Background(), plan.ID, UpdatePlanRequest{MaxCustomers: &limit})
	require.NoError(t, err)

	got, err := svc.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, got.MaxCustomers)
}

func TestPlanService_DeleteInUse(t *testing.T) {
	store := newMemStore()
	plan := store.addPlan(models.SubscriptionPlan{Name: models.PlanBasic, BillingCycle: models.CycleMonthly, Currency: "INR"})
	store.addSub(models.UserSubscription{UserID: 1, PlanID: plan.ID, Status: models.SubscriptionActive})
	svc := NewPlanService(store, 8, time.Minute)

	assert.ErrorIs(t, svc.DeletePlan(context.Background(), plan.ID), ErrInUse)
	assert.ErrorIs(t, svc.DeletePlan(context.Background(), 9999), ErrPlanNotFound)
}
