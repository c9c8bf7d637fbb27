package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeBillTotals_SingleLine(t *testing.T) {
	items := []BillLineItem{{MedicineID: 1, Name: "M1", Quantity: 2, Price: dec("10.00")}}

	totals := ComputeBillTotals(items, dec("10"), dec("5"))

	assert.True(t, totals.Subtotal.Equal(dec("20.00")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.TaxAmount.Equal(dec("2.00")), "tax %s", totals.TaxAmount)
	assert.True(t, totals.GrandTotal.Equal(dec("17.00")), "grand %s", totals.GrandTotal)
}

func TestComputeBillTotals_RoundsTaxToCents(t *testing.T) {
	items := []BillLineItem{
		{Quantity: 3, Price: dec("3.33")},
		{Quantity: 1, Price: dec("0.01")},
	}

	totals := ComputeBillTotals(items, dec("12.5"), decimal.Zero)

	// 10.00 * 12.5 / 100 = 1.25
	assert.True(t, totals.Subtotal.Equal(dec("10.00")))
	assert.True(t, totals.TaxAmount.Equal(dec("1.25")))
	assert.True(t, totals.GrandTotal.Equal(dec("11.25")))

	totals = ComputeBillTotals([]BillLineItem{{Quantity: 1, Price: dec("0.99")}}, dec("5"), decimal.Zero)
	// 0.0495 rounds half away from zero to 0.05
	assert.True(t, totals.TaxAmount.Equal(dec("0.05")), "tax %s", totals.TaxAmount)
	assert.True(t, totals.GrandTotal.Equal(dec("1.04")))
}

func TestComputeBillTotals_Invariant(t *testing.T) {
	cases := []struct {
		items    []BillLineItem
		tax      string
		discount string
	}{
		{[]BillLineItem{{Quantity: 7, Price: dec("12.49")}}, "18", "3.5"},
		{[]BillLineItem{{Quantity: 1, Price: dec("99.99")}, {Quantity: 4, Price: dec("0.25")}}, "0", "0"},
		{[]BillLineItem{{Quantity: 10, Price: dec("1.11")}}, "7.25", "1.11"},
	}
	for _, tc := range cases {
		totals := ComputeBillTotals(tc.items, dec(tc.tax), dec(tc.discount))

		sum := decimal.Zero
		for _, it := range tc.items {
			sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		expectedTax := sum.Mul(dec(tc.tax)).Div(decimal.NewFromInt(100)).Round(2)
		assert.True(t, totals.Subtotal.Equal(sum))
		assert.True(t, totals.TaxAmount.Equal(expectedTax))
		assert.True(t, totals.GrandTotal.Equal(sum.Add(expectedTax).Sub(dec(tc.discount)).Round(2)))
	}
}

func TestComputeBillTotals_Empty(t *testing.T) {
	totals := ComputeBillTotals(nil, dec("10"), decimal.Zero)
	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.GrandTotal.IsZero())
}
