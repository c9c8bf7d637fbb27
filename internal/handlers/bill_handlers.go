package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"pharmacy_pos_backend/internal/models"
	"pharmacy_pos_backend/internal/services"
	"pharmacy_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const filterDateLayout = "2006-01-02"

// BillHandler holds the billing service.
type BillHandler struct {
	billingService services.BillingService
}

// NewBillHandler creates a new BillHandler.
func NewBillHandler(bs services.BillingService) *BillHandler {
	return &BillHandler{billingService: bs}
}

// CreateBill records a sale: stock is decremented and the invoice written atomically.
func (h *BillHandler) CreateBill(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	var req services.CreateInvoiceRequest
	if !bindJSON(c, &req, "CreateBill") {
		return
	}

	bill, err := h.billingService.CreateInvoice(c.Request.Context(), ownerID, req)
	if err != nil {
		// An unknown medicine is a bad line reference, not a missing resource.
		if errors.Is(err, services.ErrInventoryItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid inventory item reference.", err.Error()))
			return
		}
		respondServiceError(c, err, "CreateBill", "Failed to create bill.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"id":      bill.ID,
		"billId":  bill.BillID,
		"bill":    bill,
	})
}

// GetBills lists invoice headers, newest first.
// Query: customer_id, date_from, date_to (YYYY-MM-DD, inclusive), page, page_size.
func (h *BillHandler) GetBills(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	page, pageSize := parsePagination(c)
	filters := models.BillFilters{Page: page, PageSize: pageSize}

	if raw := c.Query("customer_id"); raw != "" {
		customerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || customerID <= 0 {
			utils.RespondValidationFailed(c, "customer_id must be a positive integer")
			return
		}
		filters.CustomerID = &customerID
	}
	if raw := c.Query("date_from"); raw != "" {
		from, err := time.Parse(filterDateLayout, raw)
		if err != nil {
			utils.RespondValidationFailed(c, "date_from must be YYYY-MM-DD")
			return
		}
		filters.DateFrom = &from
	}
	if raw := c.Query("date_to"); raw != "" {
		to, err := time.Parse(filterDateLayout, raw)
		if err != nil {
			utils.RespondValidationFailed(c, "date_to must be YYYY-MM-DD")
			return
		}
		end := to.AddDate(0, 0, 1)
		filters.DateTo = &end
	}

	bills, total, err := h.billingService.ListInvoices(c.Request.Context(), ownerID, filters)
	if err != nil {
		respondServiceError(c, err, "GetBills", "Failed to fetch bills.")
		return
	}
	if bills == nil {
		bills = []models.Bill{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      bills,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetBillByID returns an invoice with its line items.
func (h *BillHandler) GetBillByID(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	billID, ok := parseIDParam(c, "id", "bill")
	if !ok {
		return
	}

	bill, err := h.billingService.GetInvoiceByID(c.Request.Context(), ownerID, billID)
	if err != nil {
		respondServiceError(c, err, "GetBillByID", "Failed to fetch bill.")
		return
	}
	c.JSON(http.StatusOK, bill)
}

// PrintBill returns the printable plain-text invoice.
func (h *BillHandler) PrintBill(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	billID, ok := parseIDParam(c, "id", "bill")
	if !ok {
		return
	}

	text, err := h.billingService.RenderInvoice(c.Request.Context(), ownerID, billID)
	if err != nil {
		respondServiceError(c, err, "PrintBill", "Failed to render bill.")
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

// DeleteBill removes an invoice and puts its quantities back into stock.
func (h *BillHandler) DeleteBill(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	billID, ok := parseIDParam(c, "id", "bill")
	if !ok {
		return
	}

	if err := h.billingService.DeleteInvoice(c.Request.Context(), ownerID, billID); err != nil {
		respondServiceError(c, err, "DeleteBill", "Failed to delete bill.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bill deleted successfully"})
}
