package dataset

import (
	"time"

	"retail-dashboard/internal/models"
)

// Dataset is the loaded transaction table plus the lookups the controls
// need. It is never modified after construction.
type Dataset struct {
	rows      []models.Transaction
	countries []string
	products  []string
	minDate   time.Time
	maxDate   time.Time
	hasDates  bool
	skipped   int
	source    string
	loadedAt  time.Time
}

// New indexes rows that are already parsed. The slice is retained, so callers
// must not modify it afterwards.
func New(rows []models.Transaction) *Dataset {
	ds := &Dataset{
		rows:     rows,
		loadedAt: time.Now(),
	}

	seenCountry := make(map[string]struct{})
	seenProduct := make(map[string]struct{})
	for _, tx := range rows {
		if tx.Country != "" {
			if _, ok := seenCountry[tx.Country]; !ok {
				seenCountry[tx.Country] = struct{}{}
				ds.countries = append(ds.countries, tx.Country)
			}
		}
		if tx.Description != "" {
			if _, ok := seenProduct[tx.Description]; !ok {
				seenProduct[tx.Description] = struct{}{}
				ds.products = append(ds.products, tx.Description)
			}
		}

		if !tx.HasDate() {
			continue
		}
		if !ds.hasDates || tx.Date.Before(ds.minDate) {
			ds.minDate = tx.Date
		}
		if !ds.hasDates || tx.Date.After(ds.maxDate) {
			ds.maxDate = tx.Date
		}
		ds.hasDates = true
	}

	return ds
}

func (d *Dataset) Rows() []models.Transaction {
	return d.rows
}

func (d *Dataset) Len() int {
	return len(d.rows)
}

// DateBounds reports the earliest and latest transaction dates. ok is false
// when no row carries a date.
func (d *Dataset) DateBounds() (minDate, maxDate time.Time, ok bool) {
	return d.minDate, d.maxDate, d.hasDates
}

// Countries lists distinct non-empty countries in first-seen order.
func (d *Dataset) Countries() []string {
	return d.countries
}

// Products lists distinct non-empty descriptions in first-seen order.
func (d *Dataset) Products() []string {
	return d.products
}

// SkippedRows counts input lines dropped for unparsable numbers.
func (d *Dataset) SkippedRows() int {
	return d.skipped
}

func (d *Dataset) Source() string {
	return d.source
}

func (d *Dataset) LoadedAt() time.Time {
	return d.loadedAt
}
