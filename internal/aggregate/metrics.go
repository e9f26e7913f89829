package aggregate

import (
	"github.com/shopspring/decimal"

	"retail-dashboard/internal/currency"
	"retail-dashboard/internal/models"
)

// ComputeMetrics summarises a subset for the four metric tiles. Customers
// without an ID are not counted; returns reduce the quantity total.
func ComputeMetrics(rows []models.Transaction, symbol string) models.Metrics {
	customers := make(map[string]struct{})
	invoices := make(map[string]struct{})
	revenue := decimal.Zero
	var quantity int64

	for _, tx := range rows {
		if tx.HasCustomer() {
			customers[tx.CustomerID] = struct{}{}
		}
		invoices[tx.InvoiceNo] = struct{}{}
		quantity += tx.Quantity
		revenue = revenue.Add(tx.TotalRevenue)
	}

	return models.Metrics{
		UniqueCustomers: len(customers),
		TotalQuantity:   quantity,
		TotalInvoices:   len(invoices),
		TotalRevenue:    revenue,
		Revenue:         currency.WithSymbol(symbol, revenue),
	}
}
