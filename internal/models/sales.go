package models

import (
	"errors"
	"iter"
	"slices"
	"time"
)

// ErrEmptyTable is returned by operations that need at least one row.
var ErrEmptyTable = errors.New("fact table is empty")

// FactRow is one order line after the join. TotalDue is the order total,
// repeated on every line of the same order.
type FactRow struct {
	OrderID     int64     `json:"order_id"`
	OrderDate   time.Time `json:"order_date"`
	TotalDue    float64   `json:"total_due"`
	Region      string    `json:"region"`
	ProductName string    `json:"product_name"`
}

// FactTable is the loaded result of the sales join. It is never modified
// after NewFactTable returns, so it can be shared between goroutines.
type FactTable struct {
	rows     []FactRow
	loadedAt time.Time
}

func NewFactTable(rows []FactRow, loadedAt time.Time) *FactTable {
	return &FactTable{
		rows:     slices.Clone(rows),
		loadedAt: loadedAt,
	}
}

func (t *FactTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

func (t *FactTable) LoadedAt() time.Time {
	return t.loadedAt
}

// All yields the rows in load order.
func (t *FactTable) All() iter.Seq[FactRow] {
	return slices.Values(t.rows)
}

// Rows returns a copy of the rows in load order.
func (t *FactTable) Rows() []FactRow {
	return slices.Clone(t.rows)
}

// DateBounds returns the earliest and latest order date.
func (t *FactTable) DateBounds() (time.Time, time.Time, error) {
	if len(t.rows) == 0 {
		return time.Time{}, time.Time{}, ErrEmptyTable
	}

	lo, hi := t.rows[0].OrderDate, t.rows[0].OrderDate
	for _, r := range t.rows[1:] {
		if r.OrderDate.Before(lo) {
			lo = r.OrderDate
		}
		if r.OrderDate.After(hi) {
			hi = r.OrderDate
		}
	}
	return lo, hi, nil
}

// Regions lists distinct regions in order of first appearance.
func (t *FactTable) Regions() []string {
	return distinct(t.rows, func(r FactRow) string { return r.Region })
}

// Products lists distinct product names in order of first appearance.
func (t *FactTable) Products() []string {
	return distinct(t.rows, func(r FactRow) string { return r.ProductName })
}

func distinct(rows []FactRow, key func(FactRow) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range rows {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// DateRange is inclusive on both ends.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (d DateRange) Contains(t time.Time) bool {
	return !t.Before(d.Start) && !t.After(d.End)
}

// Selection is the user's filter state. Empty Regions or Products means the
// dimension is not filtered.
type Selection struct {
	Regions   []string  `json:"regions"`
	Products  []string  `json:"products"`
	DateRange DateRange `json:"date_range"`
}

// GroupTotal is the summed TotalDue of one group.
type GroupTotal struct {
	Key   string  `json:"key"`
	Total float64 `json:"total"`
}

// MonthlyTotal is the summed TotalDue of one calendar month, labelled YYYY-MM.
type MonthlyTotal struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

type KPIs struct {
	TotalSales float64     `json:"total_sales"`
	TopRegion  *GroupTotal `json:"top_region"`
	TopProduct *GroupTotal `json:"top_product"`
}

// Dashboard is everything the page shows for one selection.
type Dashboard struct {
	Selection      Selection      `json:"selection"`
	RowCount       int            `json:"row_count"`
	NoData         bool           `json:"no_data"`
	KPIs           KPIs           `json:"kpis"`
	SalesByRegion  []GroupTotal   `json:"sales_by_region"`
	SalesByProduct []GroupTotal   `json:"sales_by_product"`
	SalesByMonth   []MonthlyTotal `json:"sales_by_month"`
}

// FilterOptions feeds the filter widgets.
type FilterOptions struct {
	Regions  []string  `json:"regions"`
	Products []string  `json:"products"`
	MinDate  time.Time `json:"min_date"`
	MaxDate  time.Time `json:"max_date"`
	RowCount int       `json:"row_count"`
	LoadedAt time.Time `json:"loaded_at"`
}
