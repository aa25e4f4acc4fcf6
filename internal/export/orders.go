// Package export renders order data as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"storefront/internal/models"

	"github.com/tealeg/xlsx"
)

// ContentType is the MIME type of the workbooks written by this package
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeLayout = "2006-01-02 15:04:05"

var orderHeaders = []string{
	"ID", "OrderNumber", "UserID", "Status", "PaymentStatus",
	"TotalItems", "TotalAmount", "ShippingAddress", "Notes", "Items",
	"CreatedAt", "UpdatedAt",
}

// WriteOrders writes one row per order, items summarised in a single cell
func WriteOrders(w io.Writer, orders []models.Order) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range orderHeaders {
		headerRow.AddCell().SetValue(h)
	}

	for _, o := range orders {
		row := sheet.AddRow()

		row.AddCell().SetInt64(o.ID)
		row.AddCell().SetValue(o.OrderNumber)
		row.AddCell().SetInt64(o.UserID)
		row.AddCell().SetValue(string(o.Status))
		row.AddCell().SetValue(string(o.PaymentStatus))
		row.AddCell().SetInt(o.TotalItems)
		row.AddCell().SetValue(o.TotalAmount.StringFixed(2))
		row.AddCell().SetValue(o.ShippingAddress)

		notes := ""
		if o.Notes != nil {
			notes = *o.Notes
		}
		row.AddCell().SetValue(notes)
		row.AddCell().SetValue(itemSummary(o.Items))

		row.AddCell().SetValue(o.CreatedAt.Format(timeLayout))
		row.AddCell().SetValue(o.UpdatedAt.Format(timeLayout))
	}

	return file.Write(w)
}

// itemSummary renders items as "2 x Lamp @ 10.00; 1 x Chair @ 5.00"
func itemSummary(items []models.OrderItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%d x %s @ %s", item.Quantity, item.ProductName, item.Price.StringFixed(2))
	}
	return strings.Join(parts, "; ")
}
