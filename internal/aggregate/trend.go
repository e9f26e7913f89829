package aggregate

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"retail-dashboard/internal/models"
)

const monthLayout = "2006-01"

type trendOptions struct {
	zeroFill bool
}

type TrendOption func(*trendOptions)

// WithZeroFill inserts zero-revenue months between the first and the last
// month that have sales.
func WithZeroFill() TrendOption {
	return func(o *trendOptions) {
		o.zeroFill = true
	}
}

// MonthlyTrend sums revenue per calendar month in ascending order. Rows
// without a date are ignored and months without rows are left out unless
// WithZeroFill is given.
func MonthlyTrend(rows []models.Transaction, opts ...TrendOption) []models.MonthlyPoint {
	var o trendOptions
	for _, opt := range opts {
		opt(&o)
	}

	buckets := make(map[time.Time]decimal.Decimal)
	for _, tx := range rows {
		if !tx.HasDate() {
			continue
		}
		month := monthStart(tx.Date)
		sum, ok := buckets[month]
		if !ok {
			sum = decimal.Zero
		}
		buckets[month] = sum.Add(tx.TotalRevenue)
	}

	months := make([]time.Time, 0, len(buckets))
	for month := range buckets {
		months = append(months, month)
	}
	slices.SortFunc(months, func(a, b time.Time) int {
		return a.Compare(b)
	})

	if o.zeroFill && len(months) > 1 {
		filled := make([]time.Time, 0, len(months))
		for m := months[0]; !m.After(months[len(months)-1]); m = m.AddDate(0, 1, 0) {
			filled = append(filled, m)
		}
		months = filled
	}

	result := make([]models.MonthlyPoint, 0, len(months))
	for _, month := range months {
		revenue, ok := buckets[month]
		if !ok {
			revenue = decimal.Zero
		}
		result = append(result, models.MonthlyPoint{
			Month:    month.Format(monthLayout),
			MonthEnd: month.AddDate(0, 1, -1),
			Revenue:  revenue,
		})
	}
	return result
}

func monthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
