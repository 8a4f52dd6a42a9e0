package store

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"sales-dashboard/internal/config"
)

// namer renders identifiers of the sample sales schema. Postgres ports of
// the schema usually fold names to lower case; SQLite has no schemas.
type namer struct {
	lowercase bool
	schemas   bool
}

func (n namer) ident(s string) string {
	if n.lowercase {
		return strings.ToLower(s)
	}
	return s
}

func (n namer) table(schema, name string) exp.IdentifierExpression {
	t := goqu.T(n.ident(name))
	if n.schemas {
		t = t.Schema(n.ident(schema))
	}
	return t
}

func (n namer) col(alias, name string) exp.IdentifierExpression {
	return goqu.T(alias).Col(n.ident(name))
}

// DataSource returns the database/sql driver name and DSN for cfg.
func DataSource(cfg config.DatabaseConfig) (string, string, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return "sqlite", cfg.Name, nil
	case config.DriverPostgres:
		q := url.Values{}
		q.Set("sslmode", sslMode(cfg))
		if cfg.ConnectTimeout > 0 {
			q.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
		}
		u := url.URL{
			Scheme:   "postgres",
			Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Path:     "/" + cfg.Name,
			RawQuery: q.Encode(),
		}
		if cfg.User != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		}
		return "pgx", u.String(), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// sslMode maps the Encrypt/TrustServerCertificate pair onto libpq modes.
func sslMode(cfg config.DatabaseConfig) string {
	switch {
	case !cfg.Encrypt:
		return "disable"
	case cfg.TrustServerCertificate:
		return "require"
	default:
		return "verify-full"
	}
}
