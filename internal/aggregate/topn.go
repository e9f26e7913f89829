package aggregate

import (
	"slices"

	"github.com/shopspring/decimal"

	"retail-dashboard/internal/models"
)

// Query describes one ranked aggregate. Secondary names the extra column a
// table shows; both sums are always computed.
type Query struct {
	Group     models.Group  `json:"group" validate:"required,oneof=country product customer"`
	Primary   models.Metric `json:"metric" validate:"required,oneof=revenue quantity"`
	Secondary models.Metric `json:"secondary" validate:"omitempty,oneof=revenue quantity"`
	N         int           `json:"n" validate:"gte=0,lte=1000"`
}

// TopN groups rows by the query's key, sorts groups by the primary sum in
// descending order and keeps the first N. Groups that tie keep the order in
// which they first appeared. Rows with an empty key are dropped.
func TopN(rows []models.Transaction, q Query) []models.RankedEntry {
	if q.N <= 0 {
		return []models.RankedEntry{}
	}

	index := make(map[string]int)
	groups := make([]models.RankedEntry, 0)
	for _, tx := range rows {
		key := groupKey(q.Group, tx)
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, models.RankedEntry{Key: key, Revenue: decimal.Zero})
		}
		groups[i].Revenue = groups[i].Revenue.Add(tx.TotalRevenue)
		groups[i].Quantity += tx.Quantity
	}

	slices.SortStableFunc(groups, func(a, b models.RankedEntry) int {
		return compareMetric(q.Primary, b, a)
	})

	if len(groups) > q.N {
		groups = groups[:q.N]
	}
	return groups
}

func groupKey(g models.Group, tx models.Transaction) string {
	switch g {
	case models.GroupCountry:
		return tx.Country
	case models.GroupProduct:
		return tx.Description
	case models.GroupCustomer:
		return tx.CustomerID
	default:
		return ""
	}
}

func compareMetric(m models.Metric, a, b models.RankedEntry) int {
	if m == models.MetricQuantity {
		switch {
		case a.Quantity < b.Quantity:
			return -1
		case a.Quantity > b.Quantity:
			return 1
		default:
			return 0
		}
	}
	return a.Revenue.Cmp(b.Revenue)
}
