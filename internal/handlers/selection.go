package handlers

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

// SelectionFromQuery reads region and product (both repeatable), start and
// end (YYYY-MM-DD) from q. Product names may contain commas, so values are
// never split.
func SelectionFromQuery(table *models.FactTable, q url.Values) (models.Selection, error) {
	return buildSelection(table, cleanValues(q["region"]), cleanValues(q["product"]), q.Get("start"), q.Get("end"))
}

// SelectionFromSignals converts the filter form's Datastar signals.
func SelectionFromSignals(table *models.FactTable, sig templates.Signals) (models.Selection, error) {
	return buildSelection(table, cleanValues(sig.Regions), cleanValues(sig.Products), sig.Start, sig.End)
}

// buildSelection fills missing date bounds from the table. Dates parse to
// midnight UTC, so an End date matches orders stamped exactly at midnight of
// that day.
func buildSelection(table *models.FactTable, regions, products []string, start, end string) (models.Selection, error) {
	sel := models.Selection{Regions: regions, Products: products}

	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		def, err := services.DefaultSelection(table)
		if err != nil {
			return sel, err
		}
		sel.DateRange = def.DateRange
	}

	if start != "" {
		t, err := parseDate(start)
		if err != nil {
			return sel, errors.BadRequestWrap(err, fmt.Sprintf("invalid start date %q, expected YYYY-MM-DD", start))
		}
		sel.DateRange.Start = t
	}
	if end != "" {
		t, err := parseDate(end)
		if err != nil {
			return sel, errors.BadRequestWrap(err, fmt.Sprintf("invalid end date %q, expected YYYY-MM-DD", end))
		}
		sel.DateRange.End = t
	}

	return sel, nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(templates.DateLayout, s, time.UTC)
}

func cleanValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
