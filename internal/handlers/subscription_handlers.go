package handlers

import (
	"net/http"

	"pharmacy_pos_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// SubscriptionHandler exposes the subscription lifecycle.
type SubscriptionHandler struct {
	subscriptionService services.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(ss services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: ss}
}

// AssignSubscription gives a user a plan starting now. Admin only.
func (h *SubscriptionHandler) AssignSubscription(c *gin.Context) {
	var req services.AssignSubscriptionRequest
	if !bindJSON(c, &req, "AssignSubscription") {
		return
	}

	sub, err := h.subscriptionService.Assign(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "AssignSubscription", "Failed to assign subscription.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "subscription": sub})
}

// SubscriptionAction applies cancel or renew to a subscription.
func (h *SubscriptionHandler) SubscriptionAction(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req services.SubscriptionActionRequest
	if !bindJSON(c, &req, "SubscriptionAction") {
		return
	}

	sub, err := h.subscriptionService.ApplyAction(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, err, "SubscriptionAction", "Failed to update subscription.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "subscription": sub})
}

// GetMySubscription returns the caller's shop subscription and whether it is valid right now.
func (h *SubscriptionHandler) GetMySubscription(c *gin.Context) {
	userID, ok := currentTenantID(c)
	if !ok {
		return
	}

	view, err := h.subscriptionService.GetForUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "GetMySubscription", "Failed to fetch subscription.")
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetUsage reports current counts against the plan limits.
func (h *SubscriptionHandler) GetUsage(c *gin.Context) {
	userID, ok := currentTenantID(c)
	if !ok {
		return
	}

	usage, err := h.subscriptionService.GetUsage(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "GetUsage", "Failed to compute usage.")
		return
	}
	c.JSON(http.StatusOK, usage)
}

// SweepExpired runs the expiry sweep on demand. Admin only.
func (h *SubscriptionHandler) SweepExpired(c *gin.Context) {
	ids, err := h.subscriptionService.SweepExpired(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "SweepExpired", "Failed to expire subscriptions.")
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	c.JSON(http.StatusOK, gin.H{"expired": len(ids), "ids": ids})
}
