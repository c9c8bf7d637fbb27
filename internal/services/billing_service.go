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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultPaymentMethod = "cash"

// InvoiceItemRequest is one cart line.
type InvoiceItemRequest struct {
	MedicineID int64            `json:"medicineId"`
	Name       string           `json:"name"`
	Quantity   int              `json:"quantity"`
	Price      *decimal.Decimal `json:"price"` // nil sells at the current inventory price
}

// CreateInvoiceRequest DTO. Subtotal, TaxAmount and GrandTotal are accepted for
// compatibility with existing clients but the server recomputes them.
type CreateInvoiceRequest struct {
	CustomerID    int64                `json:"customerId"`
	Items         []InvoiceItemRequest `json:"items"`
	Tax           decimal.Decimal      `json:"tax"`
	Discount      decimal.Decimal      `json:"discount"`
	PaymentMethod string               `json:"paymentMethod"`
	Subtotal      *decimal.Decimal     `json:"subtotal"`
	TaxAmount     *decimal.Decimal     `json:"taxAmount"`
	GrandTotal    *decimal.Decimal     `json:"grandTotal"`
}

// BillingService turns carts into persisted invoices.
type BillingService interface {
	CreateInvoice(ctx context.Context, ownerID int64, req CreateInvoiceRequest) (*models.Bill, error)
	ListInvoices(ctx context.Context, ownerID int64, filters models.BillFilters) ([]models.Bill, int, error)
	GetInvoiceByID(ctx context.Context, ownerID, billID int64) (*models.Bill, error)
	DeleteInvoice(ctx context.Context, ownerID, billID int64) error
	RenderInvoice(ctx context.Context, ownerID, billID int64) (string, error)
}

type billingService struct {
	billRepo      repositories.BillRepository
	inventoryRepo repositories.InventoryRepository
	movementRepo  repositories.InventoryMovementRepository
	customerRepo  repositories.CustomerRepository
	authRepo      repositories.AuthRepository
	tx            repositories.Transactor
	metrics       *metrics.Metrics
	billPrefix    string
	now           func() time.Time
	newBillNumber func(prefix string, at time.Time) string
}

// NewBillingService creates a new instance of BillingService.
func NewBillingService(
	br repositories.BillRepository,
	ir repositories.InventoryRepository,
	mr repositories.InventoryMovementRepository,
	cr repositories.CustomerRepository,
	ar repositories.AuthRepository,
	tx repositories.Transactor,
	m *metrics.Metrics,
	billPrefix string,
) BillingService {
	if billPrefix == "" {
		billPrefix = "INV"
	}
	return &billingService{
		billRepo:      br,
		inventoryRepo: ir,
		movementRepo:  mr,
		customerRepo:  cr,
		authRepo:      ar,
		tx:            tx,
		metrics:       m,
		billPrefix:    billPrefix,
		now:           time.Now,
		newBillNumber: NewBillNumber,
	}
}

// NewBillNumber formats PREFIX-YYYYMMDD-XXXXXXXX with a random hex suffix.
func NewBillNumber(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), suffix)
}

func validateInvoiceRequest(req CreateInvoiceRequest) error {
	if req.CustomerID <= 0 {
		return fmt.Errorf("%w: customerId is required", ErrValidation)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	for i, item := range req.Items {
		if item.MedicineID <= 0 {
			return fmt.Errorf("%w: item %d: medicineId is required", ErrValidation, i+1)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be positive", ErrValidation, i+1)
		}
		if item.Price != nil && item.Price.IsNegative() {
			return fmt.Errorf("%w: item %d: price cannot be negative", ErrValidation, i+1)
		}
	}
	if req.Tax.IsNegative() {
		return fmt.Errorf("%w: tax cannot be negative", ErrValidation)
	}
	if req.Discount.IsNegative() {
		return fmt.Errorf("%w: discount cannot be negative", ErrValidation)
	}
	return nil
}

// failureReason buckets an invoice error for the failure counter.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return metrics.ReasonValidation
	case errors.Is(err, ErrInsufficientStock):
		return metrics.ReasonInsufficientStock
	case errors.Is(err, ErrNotFound):
		return metrics.ReasonNotFound
	default:
		return metrics.ReasonPersistence
	}
}

// CreateInvoice validates the cart, computes totals and then, inside a single
// transaction, decrements stock line by line with a conditional update, records
// sale movements and writes the bill with its items. Any failure rolls back all of it.
func (s *billingService) CreateInvoice(ctx context.Context, ownerID int64, req CreateInvoiceRequest) (*models.Bill, error) {
	bill, err := s.createInvoice(ctx, ownerID, req)
	if err != nil {
		s.metrics.RecordInvoiceFailure(failureReason(err))
		utils.LogWarn("Invoice rejected", map[string]interface{}{
			"owner_id": ownerID, "customer_id": req.CustomerID, "error": err.Error(),
		})
		return nil, err
	}
	s.metrics.InvoicesCreated.Inc()
	utils.LogInfo("Invoice created", map[string]interface{}{
		"owner_id": ownerID, "bill_id": bill.ID, "bill_number": bill.BillID,
		"grand_total": bill.GrandTotal.StringFixed(2), "lines": len(bill.Items),
	})
	return bill, nil
}

func (s *billingService) createInvoice(ctx context.Context, ownerID int64, req CreateInvoiceRequest) (*models.Bill, error) {
	if err := validateInvoiceRequest(req); err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.GetCustomerByID(ctx, ownerID, req.CustomerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrCustomerNotFound, req.CustomerID)
		}
		return nil, fmt.Errorf("%w: loading customer %d: %v", ErrPersistence, req.CustomerID, err)
	}

	ids := make([]int64, 0, len(req.Items))
	requested := make(map[int64]int, len(req.Items))
	for _, item := range req.Items {
		if _, seen := requested[item.MedicineID]; !seen {
			ids = append(ids, item.MedicineID)
		}
		requested[item.MedicineID] += item.Quantity
	}
	inventory, err := s.inventoryRepo.GetItemsByIDs(ctx, ownerID, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: loading inventory: %v", ErrPersistence, err)
	}

	lines := make([]models.BillLineItem, 0, len(req.Items))
	for i, itemReq := range req.Items {
		stocked, ok := inventory[itemReq.MedicineID]
		if !ok {
			return nil, fmt.Errorf("%w: medicineId %d", ErrInventoryItemNotFound, itemReq.MedicineID)
		}
		if stocked.Stock < requested[itemReq.MedicineID] {
			return nil, fmt.Errorf("%w: %s (id %d) requested %d, available %d",
				ErrInsufficientStock, stocked.Name, stocked.ID, requested[itemReq.MedicineID], stocked.Stock)
		}
		price := stocked.Price
		if itemReq.Price != nil {
			price = *itemReq.Price
		}
		lines = append(lines, models.BillLineItem{
			Position:   i,
			MedicineID: stocked.ID,
			Name:       stocked.Name,
			Quantity:   itemReq.Quantity,
			Price:      utils.RoundMoney(price),
		})
	}

	tax := req.Tax.Round(2)
	discount := utils.RoundMoney(req.Discount)
	totals := models.ComputeBillTotals(lines, tax, discount)
	if totals.GrandTotal.IsNegative() {
		return nil, fmt.Errorf("%w: discount %s exceeds the bill total", ErrValidation, discount.StringFixed(2))
	}
	warnOnClientTotals(ownerID, req, totals)

	paymentMethod := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if paymentMethod == "" {
		paymentMethod = defaultPaymentMethod
	}
	billDate := s.now().UTC()
	bill := &models.Bill{
		OwnerID:       ownerID,
		BillID:        s.newBillNumber(s.billPrefix, billDate),
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		Subtotal:      totals.Subtotal,
		Tax:           tax,
		TaxAmount:     totals.TaxAmount,
		Discount:      discount,
		GrandTotal:    totals.GrandTotal,
		PaymentMethod: paymentMethod,
		BillDate:      billDate,
		Status:        models.BillStatusPaid,
	}

	err = s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		for _, line := range lines {
			if _, err := s.inventoryRepo.DecrementStock(ctx, tx, ownerID, line.MedicineID, line.Quantity); err != nil {
				switch {
				case errors.Is(err, repositories.ErrInsufficientStock):
					return fmt.Errorf("%w: %s (id %d) requested %d", ErrInsufficientStock, line.Name, line.MedicineID, line.Quantity)
				case errors.Is(err, repositories.ErrNotFound):
					return fmt.Errorf("%w: medicineId %d", ErrInventoryItemNotFound, line.MedicineID)
				}
				return err
			}
		}

		if _, err := s.billRepo.CreateBill(ctx, tx, bill); err != nil {
			return err
		}
		reason := utils.NewNullString("Invoice " + bill.BillID)
		for i := range lines {
			lines[i].BillID = bill.ID
			if _, err := s.billRepo.CreateBillItem(ctx, tx, &lines[i]); err != nil {
				return err
			}
			_, err := s.movementRepo.CreateMovement(ctx, tx, &models.InventoryMovement{
				InventoryItemID: lines[i].MedicineID,
				OwnerID:         ownerID,
				BillID:          &bill.ID,
				MovementType:    models.MovementTypeSale,
				QuantityChanged: -lines[i].Quantity,
				Reason:          reason,
				MovementDate:    billDate,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrInventoryItemNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: saving invoice: %v", ErrPersistence, err)
	}

	bill.Items = lines
	return bill, nil
}

// warnOnClientTotals logs when a client-computed total disagrees with the server.
func warnOnClientTotals(ownerID int64, req CreateInvoiceRequest, totals models.BillTotals) {
	check := func(field string, sent *decimal.Decimal, computed decimal.Decimal) {
		if sent != nil && !sent.Round(2).Equal(computed) {
			utils.LogWarn("Client invoice total differs from server computation", map[string]interface{}{
				"owner_id": ownerID, "field": field, "client": sent.String(), "server": computed.StringFixed(2),
			})
		}
	}
	check("subtotal", req.Subtotal, totals.Subtotal)
	check("taxAmount", req.TaxAmount, totals.TaxAmount)
	check("grandTotal", req.GrandTotal, totals.GrandTotal)
}

// ListInvoices returns bill headers, most recent first. Line items are loaded by GetInvoiceByID.
func (s *billingService) ListInvoices(ctx context.Context, ownerID int64, filters models.BillFilters) ([]models.Bill, int, error) {
	if filters.DateFrom != nil && filters.DateTo != nil && filters.DateTo.Before(*filters.DateFrom) {
		return nil, 0, fmt.Errorf("%w: date_to is before date_from", ErrValidation)
	}
	bills, total, err := s.billRepo.GetBills(ctx, ownerID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing bills: %v", ErrPersistence, err)
	}
	return bills, total, nil
}

func (s *billingService) GetInvoiceByID(ctx context.Context, ownerID, billID int64) (*models.Bill, error) {
	bill, err := s.billRepo.GetBillByID(ctx, nil, ownerID, billID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, fmt.Errorf("%w: loading bill %d: %v", ErrPersistence, billID, err)
	}
	items, err := s.billRepo.GetBillItems(ctx, nil, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading items of bill %d: %v", ErrPersistence, billID, err)
	}
	bill.Items = items
	return bill, nil
}

// DeleteInvoice puts the sold quantities back on the shelf and removes the bill.
// Lines whose inventory item no longer exists are not restocked.
func (s *billingService) DeleteInvoice(ctx context.Context, ownerID, billID int64) error {
	restored := 0
	err := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		bill, err := s.billRepo.GetBillByID(ctx, tx, ownerID, billID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrBillNotFound
			}
			return err
		}
		items, err := s.billRepo.GetBillItems(ctx, tx, bill.ID)
		if err != nil {
			return err
		}

		reason := utils.NewNullString("Deletion of invoice " + bill.BillID)
		for _, item := range items {
			if _, err := s.inventoryRepo.IncrementStock(ctx, tx, ownerID, item.MedicineID, item.Quantity); err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					utils.LogWarn("Skipping restock for removed inventory item", map[string]interface{}{
						"bill_id": bill.ID, "item_id": item.MedicineID,
					})
					continue
				}
				return err
			}
			_, err := s.movementRepo.CreateMovement(ctx, tx, &models.InventoryMovement{
				InventoryItemID: item.MedicineID,
				OwnerID:         ownerID,
				MovementType:    models.MovementTypeReturnDeletion,
				QuantityChanged: item.Quantity,
				Reason:          reason,
				MovementDate:    s.now().UTC(),
			})
			if err != nil {
				return err
			}
			restored++
		}
		return s.billRepo.DeleteBill(ctx, tx, ownerID, bill.ID)
	})
	if err != nil {
		if errors.Is(err, ErrBillNotFound) || errors.Is(err, repositories.ErrNotFound) {
			return ErrBillNotFound
		}
		return fmt.Errorf("%w: deleting bill %d: %v", ErrPersistence, billID, err)
	}
	utils.LogInfo("Invoice deleted", map[string]interface{}{
		"owner_id": ownerID, "bill_id": billID, "restocked_lines": restored,
	})
	return nil
}

// RenderInvoice prints the stored totals rather than recomputing them, so the
// document always matches what was charged.
func (s *billingService) RenderInvoice(ctx context.Context, ownerID, billID int64) (string, error) {
	bill, err := s.GetInvoiceByID(ctx, ownerID, billID)
	if err != nil {
		return "", err
	}
	shop, err := s.authRepo.FindUserByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("%w: loading shop profile: %v", ErrPersistence, err)
	}
	return renderReceipt(shop, bill)
}
