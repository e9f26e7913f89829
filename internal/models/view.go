package models

import "time"

type Mode string

const (
	ModeCountry Mode = "country"
	ModeProduct Mode = "product"
)

func (m Mode) Label() string {
	switch m {
	case ModeCountry:
		return "Country Wise"
	case ModeProduct:
		return "Product Wise"
	default:
		return string(m)
	}
}

type Group string

const (
	GroupCountry  Group = "country"
	GroupProduct  Group = "product"
	GroupCustomer Group = "customer"
)

func (g Group) Label() string {
	switch g {
	case GroupCountry:
		return "Country"
	case GroupProduct:
		return "Product"
	case GroupCustomer:
		return "CustomerID"
	default:
		return string(g)
	}
}

type Metric string

const (
	MetricNone     Metric = ""
	MetricRevenue  Metric = "revenue"
	MetricQuantity Metric = "quantity"
)

func (m Metric) Label() string {
	switch m {
	case MetricRevenue:
		return "Total Revenue"
	case MetricQuantity:
		return "Total Quantity"
	default:
		return ""
	}
}

// Controls are the analyst's selections. Country is read in country mode and
// Product in product mode; the other one is ignored.
type Controls struct {
	Start   time.Time `json:"start" validate:"required"`
	End     time.Time `json:"end" validate:"required"`
	Mode    Mode      `json:"mode" validate:"required,oneof=country product"`
	Country string    `json:"country" validate:"required_if=Mode country"`
	Product string    `json:"product" validate:"required_if=Mode product"`
}

func (c Controls) Entity() string {
	if c.Mode == ModeProduct {
		return c.Product
	}
	return c.Country
}

// Key identifies a set of controls for request deduplication.
func (c Controls) Key() string {
	return string(c.Mode) + "|" + c.Entity() + "|" + c.Start.Format(time.DateOnly) + "|" + c.End.Format(time.DateOnly)
}

type Ranking struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Group     Group         `json:"group"`
	Primary   Metric        `json:"primary"`
	Secondary Metric        `json:"secondary,omitempty"`
	N         int           `json:"n"`
	Chart     bool          `json:"chart"`
	Table     bool          `json:"table"`
	Entries   []RankedEntry `json:"entries"`
}

type View struct {
	Title      string         `json:"title"`
	Mode       Mode           `json:"mode"`
	Entity     string         `json:"entity"`
	Start      string         `json:"start"`
	End        string         `json:"end"`
	RowCount   int            `json:"row_count"`
	Metrics    Metrics        `json:"metrics"`
	Monthly    []MonthlyPoint `json:"monthly"`
	Rankings   []Ranking      `json:"rankings"`
	RenderedAt time.Time      `json:"rendered_at"`
}

type Options struct {
	Countries []string `json:"countries"`
	Products  []string `json:"products"`
	MinDate   string   `json:"min_date"`
	MaxDate   string   `json:"max_date"`
	Rows      int      `json:"rows"`
}
