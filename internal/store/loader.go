// Package store loads the sales fact table from the relational database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/metrics"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

var (
	// ErrConnectionFailure means the database could not be reached or
	// rejected the credentials.
	ErrConnectionFailure = errors.New("database connection failed")
	// ErrQueryFailure means the connection worked but the join could not be
	// executed or its rows could not be read.
	ErrQueryFailure = errors.New("sales query failed")
)

// Loader produces a fact table. Implementations perform no retries.
type Loader interface {
	Load(ctx context.Context) (*models.FactTable, error)
}

// SQLLoader runs the fixed sales join against a database/sql driver. Each
// Load opens its own connection and closes it before returning.
type SQLLoader struct {
	driverName string
	dsn        string
	query      string
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewSQLLoader(cfg config.DatabaseConfig, logger *slog.Logger) (*SQLLoader, error) {
	driverName, dsn, err := DataSource(cfg)
	if err != nil {
		return nil, err
	}

	query, err := BuildSalesQuery(dialectFor(cfg.Driver), cfg.LowercaseIdentifiers)
	if err != nil {
		return nil, fmt.Errorf("build sales query: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLLoader{
		driverName: driverName,
		dsn:        dsn,
		query:      query,
		timeout:    cfg.QueryTimeout,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (l *SQLLoader) Load(ctx context.Context) (table *models.FactTable, err error) {
	ctx, span := observability.StartSpan(ctx, "store.load")
	start := time.Now()
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish(l.logger)
		metrics.ObserveLoad(time.Since(start), table.Len(), loadStatus(err))
	}()

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	db, err := sql.Open(l.driverName, l.dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrConnectionFailure, l.driverName, err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			l.logger.Warn("failed to close database handle", "error", closeErr)
		}
	}()

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, l.query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailure, err)
	}
	defer rows.Close()

	facts, err := scanFacts(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailure, err)
	}

	table = models.NewFactTable(facts, l.now())
	l.logger.Info("sales data loaded",
		"rows", table.Len(),
		"driver", l.driverName,
		"duration", time.Since(start),
	)
	return table, nil
}

func loadStatus(err error) string {
	switch {
	case err == nil:
		return metrics.StatusOK
	case errors.Is(err, ErrConnectionFailure):
		return metrics.StatusConnection
	default:
		return metrics.StatusError
	}
}

func scanFacts(rows *sql.Rows) ([]models.FactRow, error) {
	facts := make([]models.FactRow, 0, 1024)
	for rows.Next() {
		var (
			row       models.FactRow
			orderDate any
		)
		if err := rows.Scan(&row.OrderID, &orderDate, &row.TotalDue, &row.Region, &row.ProductName); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(facts)+1, err)
		}

		parsed, err := ParseOrderDate(orderDate)
		if err != nil {
			return nil, fmt.Errorf("row %d (order %d): %w", len(facts)+1, row.OrderID, err)
		}
		row.OrderDate = parsed

		facts = append(facts, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return facts, nil
}

// dateLayouts are tried in order for drivers that return dates as text.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseOrderDate converts a driver value for the order date column into a
// time.Time.
func ParseOrderDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case string:
		return parseDateString(d)
	case []byte:
		return parseDateString(string(d))
	case nil:
		return time.Time{}, errors.New("order date is NULL")
	default:
		return time.Time{}, fmt.Errorf("unsupported order date type %T", v)
	}
}

func parseDateString(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized order date %q", s)
}

func dialectFor(driver string) string {
	if driver == config.DriverSQLite {
		return "sqlite3"
	}
	return "postgres"
}

// BuildSalesQuery renders the five-table join for a goqu dialect. An order
// with several lines yields one row per line, each carrying the full order
// TotalDue.
func BuildSalesQuery(dialect string, lowercase bool) (string, error) {
	n := namer{lowercase: lowercase, schemas: dialect != "sqlite3"}

	ds := goqu.Dialect(dialect).
		From(n.table("Sales", "SalesOrderHeader").As("soh")).
		Join(n.table("Sales", "SalesOrderDetail").As("sod"),
			goqu.On(n.col("soh", "SalesOrderID").Eq(n.col("sod", "SalesOrderID")))).
		Join(n.table("Production", "Product").As("p"),
			goqu.On(n.col("sod", "ProductID").Eq(n.col("p", "ProductID")))).
		Join(n.table("Person", "Address").As("a"),
			goqu.On(n.col("soh", "ShipToAddressID").Eq(n.col("a", "AddressID")))).
		Join(n.table("Person", "StateProvince").As("sp"),
			goqu.On(n.col("a", "StateProvinceID").Eq(n.col("sp", "StateProvinceID")))).
		Select(
			n.col("soh", "SalesOrderID"),
			n.col("soh", "OrderDate"),
			n.col("soh", "TotalDue"),
			n.col("sp", "Name").As("Region"),
			n.col("p", "Name").As("ProductName"),
		)

	query, _, err := ds.ToSQL()
	return query, err
}
