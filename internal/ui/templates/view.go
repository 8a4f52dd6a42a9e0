// Package templates renders the dashboard HTML. The components live in
// dashboard.templ; run `templ generate` after editing it.
package templates

import (
	"context"
	"fmt"
	"strings"

	"github.com/a-h/templ"
	"github.com/goccy/go-json"

	"sales-dashboard/internal/models"
)

// PageView is what the page needs before the first pipeline run.
type PageView struct {
	Title   string
	Options models.FilterOptions
}

// Signals are the Datastar signals the filter form binds to.
type Signals struct {
	Regions  []string `json:"regions"`
	Products []string `json:"products"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
}

// ChartSignals carry the chart series. The underscore prefix keeps Datastar
// from sending them back with every request.
type ChartSignals struct {
	SalesByProduct []models.GroupTotal   `json:"_salesByProduct"`
	SalesByMonth   []models.MonthlyTotal `json:"_salesByMonth"`
}

type pageSignals struct {
	Signals
	ChartSignals
}

func initialSignals(opts models.FilterOptions) pageSignals {
	return pageSignals{
		Signals: Signals{
			Regions:  []string{},
			Products: []string{},
			Start:    FormatDate(opts.MinDate),
			End:      FormatDate(opts.MaxDate),
		},
		ChartSignals: ChartSignals{
			SalesByProduct: []models.GroupTotal{},
			SalesByMonth:   []models.MonthlyTotal{},
		},
	}
}

func signalsJSON(opts models.FilterOptions) (string, error) {
	b, err := json.Marshal(initialSignals(opts))
	if err != nil {
		return "", fmt.Errorf("marshal signals: %w", err)
	}
	return string(b), nil
}

func loadedSummary(opts models.FilterOptions) string {
	return fmt.Sprintf("%d rows loaded %s", opts.RowCount, opts.LoadedAt.Format("2006-01-02 15:04"))
}

// Render writes c to a string, for SSE patches.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

const pageStyle = `
body{font-family:system-ui,sans-serif;margin:0 auto;max-width:1200px;padding:1rem;color:#1f2933}
header{display:flex;gap:1rem;align-items:baseline}
header button{margin-left:auto}
.filters{display:grid;grid-template-columns:1fr 1fr auto auto;gap:1rem;margin:1rem 0}
.filters label{display:flex;flex-direction:column;font-size:.85rem;gap:.25rem}
.kpis{display:grid;grid-template-columns:repeat(3,1fr);gap:1rem}
.kpi{border:1px solid #d9e2ec;border-radius:6px;padding:1rem;display:flex;flex-direction:column}
.kpi .value{font-size:1.6rem}
.kpi.nodata .value{color:#9aa5b1}
.kpi .note,.kpi .label{font-size:.8rem;color:#52606d}
.charts{display:grid;grid-template-columns:1fr;gap:1rem;margin-top:1rem}
.error{margin-top:4rem;text-align:center}
.banner{background:#fde8e8;border:1px solid #f8b4b4;border-radius:6px;padding:.75rem;margin-bottom:1rem;color:#9b1c1c}
`

const chartsScript = `
window.renderSalesCharts = (function () {
  let products, months;
  return function (byProduct, byMonth) {
    if (!window.Chart) return;
    byProduct = byProduct || [];
    byMonth = byMonth || [];
    if (products) products.destroy();
    if (months) months.destroy();
    products = new Chart(document.getElementById('chart-products'), {
      type: 'bar',
      data: {labels: byProduct.map(p => p.key), datasets: [{label: 'Total sales', data: byProduct.map(p => p.total)}]},
      options: {indexAxis: 'y', maintainAspectRatio: false}
    });
    months = new Chart(document.getElementById('chart-months'), {
      type: 'line',
      data: {labels: byMonth.map(m => m.month), datasets: [{label: 'Total sales', data: byMonth.map(m => m.total)}]}
    });
  };
})();
`
