// Package aggregate holds the dashboard's pure transformations: filters over
// transaction rows, the scalar metrics, the monthly revenue series and the
// top-N rankings, composed by BuildView into the view the UI renders.
//
// Every function reads its input slice and returns freshly allocated results;
// none of them mutate rows, so a loaded dataset can be shared across requests.
package aggregate

import (
	"time"

	"retail-dashboard/internal/models"
)

// Where returns the rows matching keep, in input order. The result is never nil.
func Where(rows []models.Transaction, keep func(models.Transaction) bool) []models.Transaction {
	result := make([]models.Transaction, 0)
	for _, tx := range rows {
		if keep(tx) {
			result = append(result, tx)
		}
	}
	return result
}

// FilterByDateRange keeps rows whose calendar date lies in [start, end].
// Time of day is ignored on the bounds and on the rows, and rows without a
// date never match. Inverted bounds match nothing.
func FilterByDateRange(rows []models.Transaction, start, end time.Time) []models.Transaction {
	from, to := civilDate(start), civilDate(end)
	if to.Before(from) {
		return []models.Transaction{}
	}

	return Where(rows, func(tx models.Transaction) bool {
		if !tx.HasDate() {
			return false
		}
		day := civilDate(tx.Date)
		return !day.Before(from) && !day.After(to)
	})
}

func FilterByCountry(rows []models.Transaction, country string) []models.Transaction {
	return Where(rows, func(tx models.Transaction) bool {
		return tx.Country == country
	})
}

func FilterByProduct(rows []models.Transaction, description string) []models.Transaction {
	return Where(rows, func(tx models.Transaction) bool {
		return tx.Description == description
	})
}

// civilDate drops the clock reading while keeping the calendar day as seen in
// the value's own location.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
