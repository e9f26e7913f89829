package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one line item of the retail dataset. A zero Date marks a
// value that could not be parsed; an empty CustomerID marks a missing customer.
type Transaction struct {
	InvoiceNo    string
	CustomerID   string
	Country      string
	Description  string
	Quantity     int64
	TotalRevenue decimal.Decimal
	Date         time.Time
}

func (t Transaction) HasDate() bool {
	return !t.Date.IsZero()
}

func (t Transaction) HasCustomer() bool {
	return t.CustomerID != ""
}

type Metrics struct {
	UniqueCustomers int             `json:"unique_customers"`
	TotalQuantity   int64           `json:"total_quantity"`
	TotalInvoices   int             `json:"total_invoices"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	Revenue         string          `json:"revenue"`
}

type MonthlyPoint struct {
	Month    string          `json:"month"`
	MonthEnd time.Time       `json:"month_end"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type RankedEntry struct {
	Key      string          `json:"key"`
	Revenue  decimal.Decimal `json:"revenue"`
	Quantity int64           `json:"quantity"`
}
