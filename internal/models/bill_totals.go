package models

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// BillTotals holds the computed money fields of an invoice.
type BillTotals struct {
	Subtotal   decimal.Decimal
	TaxAmount  decimal.Decimal
	GrandTotal decimal.Decimal
}

// ComputeBillTotals applies
//
//	subtotal   = sum(price * quantity)
//	taxAmount  = round(subtotal * tax / 100, 2)
//	grandTotal = round(subtotal + taxAmount - discount, 2)
//
// Rounding is half away from zero.
func ComputeBillTotals(items []BillLineItem, taxPercent, discount decimal.Decimal) BillTotals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	taxAmount := subtotal.Mul(taxPercent).Div(hundred).Round(2)
	grandTotal := subtotal.Add(taxAmount).Sub(discount).Round(2)
	return BillTotals{
		Subtotal:   subtotal.Round(2),
		TaxAmount:  taxAmount,
		GrandTotal: grandTotal,
	}
}
