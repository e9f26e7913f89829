package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"retail-dashboard/internal/models"
)

var ErrInvalidControls = errors.New("invalid controls")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Settings are the presentation knobs BuildView reads from configuration.
type Settings struct {
	CurrencySymbol        string
	TopCountries          int
	TopProducts           int
	TopCustomers          int
	TopProductsByQuantity int
	ZeroFillMonths        bool
}

func DefaultSettings() Settings {
	return Settings{
		CurrencySymbol:        "$",
		TopCountries:          5,
		TopProducts:           10,
		TopCustomers:          5,
		TopProductsByQuantity: 5,
	}
}

// ValidateControls reports missing or malformed selections. The error wraps
// both ErrInvalidControls and the validator's field errors.
func ValidateControls(c models.Controls) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidControls, err)
	}
	return nil
}

// ValidateQuery checks a free-form ranking request.
func ValidateQuery(q Query) error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidControls, err)
	}
	return nil
}

// Select applies the date range and then the entity filter for the mode.
func Select(rows []models.Transaction, c models.Controls) []models.Transaction {
	subset := FilterByDateRange(rows, c.Start, c.End)
	if c.Mode == models.ModeProduct {
		return FilterByProduct(subset, c.Product)
	}
	return FilterByCountry(subset, c.Country)
}

// Rankings lists the ranked aggregates shown for a mode, without entries.
func Rankings(mode models.Mode, s Settings) []models.Ranking {
	if mode == models.ModeProduct {
		return []models.Ranking{
			{
				ID:        "top-countries",
				Title:     fmt.Sprintf("Top %d Countries by Revenue", s.TopCountries),
				Group:     models.GroupCountry,
				Primary:   models.MetricRevenue,
				Secondary: models.MetricQuantity,
				N:         s.TopCountries,
				Chart:     true,
				Table:     true,
			},
		}
	}

	return []models.Ranking{
		{
			ID:      "top-products",
			Title:   fmt.Sprintf("Top %d Products by Total Revenue", s.TopProducts),
			Group:   models.GroupProduct,
			Primary: models.MetricRevenue,
			N:       s.TopProducts,
			Chart:   true,
		},
		{
			ID:        "top-customers",
			Title:     fmt.Sprintf("Top %d Customers by Revenue", s.TopCustomers),
			Group:     models.GroupCustomer,
			Primary:   models.MetricRevenue,
			Secondary: models.MetricQuantity,
			N:         s.TopCustomers,
			Table:     true,
		},
		{
			ID:      "top-products-quantity",
			Title:   fmt.Sprintf("Top %d Products by Quantity Sold", s.TopProductsByQuantity),
			Group:   models.GroupProduct,
			Primary: models.MetricQuantity,
			N:       s.TopProductsByQuantity,
			Table:   true,
		},
	}
}

// BuildView runs the whole pipeline for one set of controls. It returns
// ctx.Err() when the context ends between stages.
func BuildView(ctx context.Context, rows []models.Transaction, c models.Controls, s Settings) (models.View, error) {
	if err := ValidateControls(c); err != nil {
		return models.View{}, err
	}

	subset := Select(rows, c)
	if err := ctx.Err(); err != nil {
		return models.View{}, err
	}

	view := models.View{
		Title:    "Analysis for " + c.Entity(),
		Mode:     c.Mode,
		Entity:   c.Entity(),
		Start:    c.Start.Format(time.DateOnly),
		End:      c.End.Format(time.DateOnly),
		RowCount: len(subset),
		Metrics:  ComputeMetrics(subset, s.CurrencySymbol),
	}

	var trendOpts []TrendOption
	if s.ZeroFillMonths {
		trendOpts = append(trendOpts, WithZeroFill())
	}
	view.Monthly = MonthlyTrend(subset, trendOpts...)
	if err := ctx.Err(); err != nil {
		return models.View{}, err
	}

	view.Rankings = Rankings(c.Mode, s)
	for i := range view.Rankings {
		r := &view.Rankings[i]
		r.Entries = TopN(subset, Query{Group: r.Group, Primary: r.Primary, Secondary: r.Secondary, N: r.N})
	}
	if err := ctx.Err(); err != nil {
		return models.View{}, err
	}

	view.RenderedAt = time.Now()
	return view, nil
}
