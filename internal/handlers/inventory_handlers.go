package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"pharmacy_pos_backend/internal/models"
	"pharmacy_pos_backend/internal/services"
	"pharmacy_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const defaultExpiryWindowDays = 30

// InventoryHandler holds the inventory service.
type InventoryHandler struct {
	inventoryService services.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(is services.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: is}
}

// CreateItem handles POST /inventory.
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	var req services.CreateInventoryItemRequest
	if !bindJSON(c, &req, "CreateItem") {
		return
	}

	item, err := h.inventoryService.CreateItem(c.Request.Context(), ownerID, req)
	if err != nil {
		respondServiceError(c, err, "CreateItem", "Failed to create inventory item.")
		return
	}
	c.JSON(http.StatusCreated, item)
}

// GetItems handles fetching the tenant's inventory with pagination and search.
func (h *InventoryHandler) GetItems(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	page, pageSize := parsePagination(c)
	filters := models.InventoryFilters{Page: page, PageSize: pageSize}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filters.Search = &search
	}

	items, total, err := h.inventoryService.GetItems(c.Request.Context(), ownerID, filters)
	if err != nil {
		respondServiceError(c, err, "GetItems", "Failed to fetch inventory.")
		return
	}
	if items == nil {
		items = []models.InventoryItem{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetItemByID handles GET /inventory/:id.
func (h *InventoryHandler) GetItemByID(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "id", "inventory item")
	if !ok {
		return
	}

	item, err := h.inventoryService.GetItemByID(c.Request.Context(), ownerID, itemID)
	if err != nil {
		respondServiceError(c, err, "GetItemByID", "Failed to fetch inventory item.")
		return
	}
	c.JSON(http.StatusOK, item)
}

// UpdateItem handles PUT /inventory/:id.
func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "id", "inventory item")
	if !ok {
		return
	}
	var req services.UpdateInventoryItemRequest
	if !bindJSON(c, &req, "UpdateItem") {
		return
	}

	item, err := h.inventoryService.UpdateItem(c.Request.Context(), ownerID, itemID, req)
	if err != nil {
		respondServiceError(c, err, "UpdateItem", "Failed to update inventory item.")
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteItem handles DELETE /inventory/:id.
func (h *InventoryHandler) DeleteItem(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "id", "inventory item")
	if !ok {
		return
	}

	if err := h.inventoryService.DeleteItem(c.Request.Context(), ownerID, itemID); err != nil {
		respondServiceError(c, err, "DeleteItem", "Failed to delete inventory item.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Inventory item deleted successfully"})
}

// GetExpiringItems lists items whose expiry falls within ?days= (default 30).
func (h *InventoryHandler) GetExpiringItems(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	days := defaultExpiryWindowDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondValidationFailed(c, "days must be an integer")
			return
		}
		days = parsed
	}

	items, err := h.inventoryService.GetExpiringItems(c.Request.Context(), ownerID, days)
	if err != nil {
		respondServiceError(c, err, "GetExpiringItems", "Failed to fetch expiring items.")
		return
	}
	if items == nil {
		items = []models.InventoryItem{}
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "days": days})
}

// GetMovements returns the stock ledger, optionally for one ?item_id=.
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	var itemID *int64
	if raw := c.Query("item_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			utils.RespondValidationFailed(c, "item_id must be a positive integer")
			return
		}
		itemID = &parsed
	}

	movements, err := h.inventoryService.GetMovements(c.Request.Context(), ownerID, itemID)
	if err != nil {
		respondServiceError(c, err, "GetMovements", "Failed to fetch inventory movements.")
		return
	}
	if movements == nil {
		movements = []models.InventoryMovement{}
	}
	c.JSON(http.StatusOK, gin.H{"data": movements})
}
