package handlers

import (
	"net/http"
	"strings"

	"pharmacy_pos_backend/internal/models"
	"pharmacy_pos_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// CustomerHandler holds the customer service.
type CustomerHandler struct {
	customerService services.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(cs services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: cs}
}

// CreateCustomer handles the creation of a new customer.
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	var req services.CustomerRequest
	if !bindJSON(c, &req, "CreateCustomer") {
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), ownerID, req)
	if err != nil {
		respondServiceError(c, err, "CreateCustomer", "Failed to create customer.")
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// GetCustomers handles fetching customers with pagination and search.
func (h *CustomerHandler) GetCustomers(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	page, pageSize := parsePagination(c)
	var search *string
	if term := strings.TrimSpace(c.Query("search")); term != "" {
		search = &term
	}

	customers, total, err := h.customerService.GetCustomers(c.Request.Context(), ownerID, page, pageSize, search)
	if err != nil {
		respondServiceError(c, err, "GetCustomers", "Failed to fetch customers.")
		return
	}
	if customers == nil {
		customers = []models.Customer{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      customers,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetCustomerByID handles fetching a single customer by ID.
func (h *CustomerHandler) GetCustomerByID(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	customerID, ok := parseIDParam(c, "id", "customer")
	if !ok {
		return
	}

	customer, err := h.customerService.GetCustomerByID(c.Request.Context(), ownerID, customerID)
	if err != nil {
		respondServiceError(c, err, "GetCustomerByID", "Failed to fetch customer.")
		return
	}
	c.JSON(http.StatusOK, customer)
}

// UpdateCustomer handles updating a customer.
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	customerID, ok := parseIDParam(c, "id", "customer")
	if !ok {
		return
	}
	var req services.CustomerRequest
	if !bindJSON(c, &req, "UpdateCustomer") {
		return
	}

	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), ownerID, customerID, req)
	if err != nil {
		respondServiceError(c, err, "UpdateCustomer", "Failed to update customer.")
		return
	}
	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer handles deleting a customer. Customers referenced by bills are kept.
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	customerID, ok := parseIDParam(c, "id", "customer")
	if !ok {
		return
	}

	if err := h.customerService.DeleteCustomer(c.Request.Context(), ownerID, customerID); err != nil {
		respondServiceError(c, err, "DeleteCustomer", "Failed to delete customer.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
}
