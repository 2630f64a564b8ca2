package sqlparser

import (
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"

	"tabular/internal/errs"
)

// Driver names registered with database/sql.
const (
	DriverPostgres  = "pgx"
	DriverMySQL     = "mysql"
	DriverSQLite    = "sqlite"
	DriverSQLServer = "sqlserver"
)

// Connection converts a database URL into a database/sql driver name and a
// driver-native DSN.
//
//	postgres://u:p@host/db    -> pgx, unchanged
//	mysql://u:p@host:3306/db  -> mysql, u:p@tcp(host:3306)/db
//	sqlite:///rel.db          -> sqlite, rel.db
//	sqlite:////abs/path.db    -> sqlite, /abs/path.db
//	mssql://u:p@host?database=db -> sqlserver, sqlserver://u:p@host?database=db
func Connection(raw string) (driver, dsn string, err error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return "", "", errs.New(errs.CodeScheme, "database url %q has no scheme", raw)
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return DriverPostgres, raw, nil

	case "sqlite":
		return DriverSQLite, strings.TrimPrefix(rest, "/"), nil

	case "sqlserver", "mssql":
		return DriverSQLServer, "sqlserver://" + rest, nil

	case "mysql":
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", errs.Wrap(errs.CodeScheme, err)
		}
		cfg := mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		cfg.ParseTime = true
		if q := u.Query(); len(q) > 0 {
			cfg.Params = map[string]string{}
			for k := range q {
				cfg.Params[k] = q.Get(k)
			}
		}
		return DriverMySQL, cfg.FormatDSN(), nil
	}
	return "", "", errs.New(errs.CodeScheme, "scheme %q is not a supported database", scheme)
}

// quoteIdent quotes a possibly schema-qualified identifier for driver.
func quoteIdent(driver, name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		switch driver {
		case DriverMySQL:
			parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
		case DriverSQLServer:
			parts[i] = "[" + strings.ReplaceAll(p, "]", "]]") + "]"
		default:
			parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
		}
	}
	return strings.Join(parts, ".")
}
