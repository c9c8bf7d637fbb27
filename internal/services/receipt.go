package services

import (
	"fmt"
	"strings"
	"text/template"

	"pharmacy_pos_backend/internal/models"
	"pharmacy_pos_backend/pkg/utils"

	"github.com/shopspring/decimal"
)

const receiptWidth = 48

var receiptTemplate = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"center": centerText,
	"rule":   func() string { return strings.Repeat("-", receiptWidth) },
	"money":  func(d decimal.Decimal) string { return d.StringFixed(2) },
	"line":   formatReceiptLine,
	"total":  formatReceiptTotal,
}).Parse(`{{center .ShopName}}
{{- with .ShopAddress}}
{{center .}}{{end}}
{{- with .ShopPhone}}
{{center (printf "Ph: %s" .)}}{{end}}
{{rule}}
Invoice: {{.Bill.BillID}}
Date:    {{.Bill.BillDate.Format "02 Jan 2006 15:04"}}
Customer: {{.Bill.CustomerName}}
{{rule}}
{{printf "%-24s %5s %8s %8s" "Item" "Qty" "Price" "Amount"}}
{{range .Bill.Items}}{{line .}}
{{end}}{{rule}}
{{total "Subtotal" .Bill.Subtotal}}
{{total (printf "Tax (%s%%)" .Bill.Tax.String) .Bill.TaxAmount}}
{{total "Discount" .Bill.Discount}}
{{total "Grand Total" .Bill.GrandTotal}}
{{rule}}
Payment: {{.Bill.PaymentMethod}}
{{center "Thank you. Get well soon!"}}
`))

type receiptData struct {
	ShopName    string
	ShopAddress string
	ShopPhone   string
	Bill        *models.Bill
}

func centerText(s string) string {
	if len(s) >= receiptWidth {
		return s
	}
	return strings.Repeat(" ", (receiptWidth-len(s))/2) + s
}

func formatReceiptLine(item models.BillLineItem) string {
	name := item.Name
	if len(name) > 24 {
		name = name[:24]
	}
	return fmt.Sprintf("%-24s %5d %8s %8s", name, item.Quantity, item.Price.StringFixed(2), item.LineTotal().StringFixed(2))
}

func formatReceiptTotal(label string, amount decimal.Decimal) string {
	return fmt.Sprintf("%*s %12s", receiptWidth-13, label, amount.StringFixed(2))
}

// renderReceipt produces the fixed-width printable invoice.
func renderReceipt(shop *models.User, bill *models.Bill) (string, error) {
	shopName := utils.DerefString(shop.ShopName)
	if shopName == "" {
		shopName = shop.Name
	}
	data := receiptData{
		ShopName:    shopName,
		ShopAddress: utils.DerefString(shop.ShopAddress),
		ShopPhone:   utils.DerefString(shop.Phone),
		Bill:        bill,
	}
	var b strings.Builder
	if err := receiptTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering invoice %s: %w", bill.BillID, err)
	}
	return b.String(), nil
}
