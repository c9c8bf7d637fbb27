package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillStatus values. Bills are written once as paid.
const (
	BillStatusPaid = "paid"
)

// Bill is the immutable invoice of a completed sale.
type Bill struct {
	ID            int64           `json:"id" db:"id"`
	OwnerID       int64           `json:"ownerId" db:"owner_id"`
	BillID        string          `json:"billId" db:"bill_number"`
	CustomerID    int64           `json:"customerId" db:"customer_id"`
	CustomerName  string          `json:"customerName" db:"customer_name"`
	Items         []BillLineItem  `json:"items,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal" db:"subtotal"`
	Tax           decimal.Decimal `json:"tax" db:"tax_percent"`
	TaxAmount     decimal.Decimal `json:"taxAmount" db:"tax_amount"`
	Discount      decimal.Decimal `json:"discount" db:"discount"`
	GrandTotal    decimal.Decimal `json:"grandTotal" db:"grand_total"`
	PaymentMethod string          `json:"paymentMethod" db:"payment_method"`
	BillDate      time.Time       `json:"billDate" db:"bill_date"`
	Status        string          `json:"status" db:"status"`
}

// BillLineItem snapshots name and price at sale time.
type BillLineItem struct {
	ID         int64           `json:"id,omitempty" db:"id"`
	BillID     int64           `json:"-" db:"bill_id"`
	Position   int             `json:"-" db:"position"`
	MedicineID int64           `json:"medicineId" db:"inventory_item_id"`
	Name       string          `json:"name" db:"name"`
	Quantity   int             `json:"quantity" db:"quantity"`
	Price      decimal.Decimal `json:"price" db:"price"`
}

// LineTotal is price x quantity.
func (l BillLineItem) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// BillFilters defines the available filters for querying bills.
type BillFilters struct {
	CustomerID *int64
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}
