package handlers

import (
	"net/http"

	"pharmacy_pos_backend/internal/models"
	"pharmacy_pos_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// PlanHandler holds the subscription plan catalogue service.
type PlanHandler struct {
	planService services.PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(ps services.PlanService) *PlanHandler {
	return &PlanHandler{planService: ps}
}

func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req services.CreatePlanRequest
	if !bindJSON(c, &req, "CreatePlan") {
		return
	}

	plan, err := h.planService.CreatePlan(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "CreatePlan", "Failed to create plan.")
		return
	}
	c.JSON(http.StatusCreated, plan)
}

func (h *PlanHandler) GetPlans(c *gin.Context) {
	plans, err := h.planService.ListPlans(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "GetPlans", "Failed to fetch plans.")
		return
	}
	if plans == nil {
		plans = []models.SubscriptionPlan{}
	}
	c.JSON(http.StatusOK, gin.H{"data": plans})
}

func (h *PlanHandler) GetPlanByID(c *gin.Context) {
	planID, ok := parseIDParam(c, "id", "plan")
	if !ok {
		return
	}

	plan, err := h.planService.GetPlan(c.Request.Context(), planID)
	if err != nil {
		respondServiceError(c, err, "GetPlanByID", "Failed to fetch plan.")
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	planID, ok := parseIDParam(c, "id", "plan")
	if !ok {
		return
	}
	var req services.UpdatePlanRequest
	if !bindJSON(c, &req, "UpdatePlan") {
		return
	}

	plan, err := h.planService.UpdatePlan(c.Request.Context(), planID, req)
	if err != nil {
		respondServiceError(c, err, "UpdatePlan", "Failed to update plan.")
		return
	}
	c.JSON(http.StatusOK, plan)
}

// DeletePlan refuses plans that still have subscribers (409).
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	planID, ok := parseIDParam(c, "id", "plan")
	if !ok {
		return
	}

	if err := h.planService.DeletePlan(c.Request.Context(), planID); err != nil {
		respondServiceError(c, err, "DeletePlan", "Failed to delete plan.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plan deleted successfully"})
}
