package services

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"sales-dashboard/internal/metrics"
	"sales-dashboard/internal/models"
)

// ErrEmptyAggregation is returned when a max-based KPI is requested over
// zero rows. It is distinct from a zero total.
var ErrEmptyAggregation = errors.New("no rows to aggregate")

// Filter returns the rows of table matching every active predicate of sel.
// It never fails; a date range outside the data yields an empty result.
func Filter(table *models.FactTable, sel models.Selection) []models.FactRow {
	regions := toSet(sel.Regions)
	products := toSet(sel.Products)

	out := make([]models.FactRow, 0)
	for row := range table.All() {
		if !matches(row, regions, products, sel.DateRange) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// FilterRows applies sel to an already materialized slice.
func FilterRows(rows []models.FactRow, sel models.Selection) []models.FactRow {
	return Filter(models.NewFactTable(rows, time.Time{}), sel)
}

func matches(row models.FactRow, regions, products map[string]struct{}, dr models.DateRange) bool {
	if len(regions) > 0 {
		if _, ok := regions[row.Region]; !ok {
			return false
		}
	}
	if len(products) > 0 {
		if _, ok := products[row.ProductName]; !ok {
			return false
		}
	}
	return dr.Contains(row.OrderDate)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// TotalSales sums TotalDue over rows. Zero rows sum to zero.
func TotalSales(rows []models.FactRow) float64 {
	var total float64
	for _, r := range rows {
		total += r.TotalDue
	}
	return total
}

// TopRegion returns the region with the largest summed TotalDue. Ties go to
// the region that appeared first in rows.
func TopRegion(rows []models.FactRow) (models.GroupTotal, error) {
	return argmax(SalesByRegion(rows))
}

// TopProduct returns the product with the largest summed TotalDue. Ties go
// to the product that appeared first in rows.
func TopProduct(rows []models.FactRow) (models.GroupTotal, error) {
	return argmax(SalesByProduct(rows))
}

func argmax(groups []models.GroupTotal) (models.GroupTotal, error) {
	if len(groups) == 0 {
		return models.GroupTotal{}, ErrEmptyAggregation
	}
	best := groups[0]
	for _, g := range groups[1:] {
		if g.Total > best.Total {
			best = g
		}
	}
	return best, nil
}

// ComputeKPIs fills all three KPIs. On empty input TotalSales is still set
// (to zero), the leaders are nil and ErrEmptyAggregation is returned.
func ComputeKPIs(rows []models.FactRow) (models.KPIs, error) {
	kpis := models.KPIs{TotalSales: TotalSales(rows)}

	region, err := TopRegion(rows)
	if err != nil {
		return kpis, fmt.Errorf("top region: %w", err)
	}
	product, err := TopProduct(rows)
	if err != nil {
		return kpis, fmt.Errorf("top product: %w", err)
	}

	kpis.TopRegion = &region
	kpis.TopProduct = &product
	return kpis, nil
}

// SalesByRegion groups by region in order of first appearance.
func SalesByRegion(rows []models.FactRow) []models.GroupTotal {
	return groupSum(rows, func(r models.FactRow) string { return r.Region })
}

// SalesByProduct groups by product name in order of first appearance.
func SalesByProduct(rows []models.FactRow) []models.GroupTotal {
	return groupSum(rows, func(r models.FactRow) string { return r.ProductName })
}

func groupSum(rows []models.FactRow, key func(models.FactRow) string) []models.GroupTotal {
	index := make(map[string]int)
	groups := make([]models.GroupTotal, 0)
	for _, r := range rows {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, models.GroupTotal{Key: k})
		}
		groups[i].Total += r.TotalDue
	}
	return groups
}

type yearMonth struct {
	year  int
	month time.Month
}

func (ym yearMonth) label() string {
	return fmt.Sprintf("%04d-%02d", ym.year, int(ym.month))
}

// SalesByMonth groups by calendar month of OrderDate, ascending.
func SalesByMonth(rows []models.FactRow) []models.MonthlyTotal {
	sums := make(map[yearMonth]float64)
	for _, r := range rows {
		ym := yearMonth{year: r.OrderDate.Year(), month: r.OrderDate.Month()}
		sums[ym] += r.TotalDue
	}

	keys := make([]yearMonth, 0, len(sums))
	for ym := range sums {
		keys = append(keys, ym)
	}
	slices.SortFunc(keys, func(a, b yearMonth) int {
		return cmp.Or(cmp.Compare(a.year, b.year), cmp.Compare(a.month, b.month))
	})

	out := make([]models.MonthlyTotal, 0, len(keys))
	for _, ym := range keys {
		out = append(out, models.MonthlyTotal{Month: ym.label(), Total: sums[ym]})
	}
	return out
}

// Run filters table by sel and computes KPIs and series. The returned
// dashboard is always complete; the error is ErrEmptyAggregation when the
// selection matched nothing, in which case NoData is set and both leaders
// are nil.
func Run(table *models.FactTable, sel models.Selection) (*models.Dashboard, error) {
	start := time.Now()
	filtered := Filter(table, sel)

	kpis, err := ComputeKPIs(filtered)
	dash := &models.Dashboard{
		Selection:      sel,
		RowCount:       len(filtered),
		NoData:         errors.Is(err, ErrEmptyAggregation),
		KPIs:           kpis,
		SalesByRegion:  SalesByRegion(filtered),
		SalesByProduct: SalesByProduct(filtered),
		SalesByMonth:   SalesByMonth(filtered),
	}

	metrics.ObservePipeline(time.Since(start), dash.NoData)
	return dash, err
}

// DefaultSelection selects everything in table: no region or product filter
// and the full observed date range.
func DefaultSelection(table *models.FactTable) (models.Selection, error) {
	lo, hi, err := table.DateBounds()
	if err != nil {
		return models.Selection{}, err
	}
	return models.Selection{DateRange: models.DateRange{Start: lo, End: hi}}, nil
}
