package source

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/microsoft/go-mssqldb/msdsn"
)

// ParseConn maps a URL-style connection string to a database/sql driver name
// and DSN. SQLAlchemy-style schemes ("mysql+pymysql://") are accepted; the
// part after '+' is ignored.
//
//	postgres://u:p@host:5432/db     -> pgx
//	mysql://u:p@host:3306/db        -> mysql (go-sql-driver DSN)
//	sqlserver://u:p@host?database=x -> sqlserver
//	sqlite:///abs/path.db           -> sqlite
//	sqlite::memory:                 -> sqlite
func ParseConn(conn string) (driver, dsn string, err error) {
	conn = strings.TrimSpace(conn)
	if conn == "sqlite::memory:" {
		return "sqlite", ":memory:", nil
	}
	scheme, rest, ok := strings.Cut(conn, "://")
	if !ok {
		return "", "", fmt.Errorf("connection string %q has no scheme", redact(conn))
	}
	scheme, _, _ = strings.Cut(strings.ToLower(scheme), "+")

	switch scheme {
	case "postgres", "postgresql":
		return "pgx", "postgres://" + rest, nil

	case "mysql", "mariadb":
		u, err := url.Parse("mysql://" + rest)
		if err != nil {
			return "", "", fmt.Errorf("parse mysql url: %w", err)
		}
		return "mysql", mysqlDSN(u), nil

	case "sqlserver", "mssql":
		dsn := "sqlserver://" + rest
		if _, err := msdsn.Parse(dsn); err != nil {
			return "", "", fmt.Errorf("mssql dsn: %w", err)
		}
		return "sqlserver", dsn, nil

	case "sqlite", "sqlite3":
		if rest == "" {
			return "", "", fmt.Errorf("sqlite connection string has no path")
		}
		return "sqlite", rest, nil
	}
	return "", "", fmt.Errorf("unsupported database scheme %q", scheme)
}

func mysqlDSN(u *url.URL) string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.User = u.User.Username()
	cfg.Passwd, _ = u.User.Password()
	host, port := u.Hostname(), u.Port()
	if port == "" {
		port = "3306"
	}
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	for k, v := range u.Query() {
		if len(v) == 0 {
			continue
		}
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params[k] = v[0]
	}
	return cfg.FormatDSN()
}

// redact hides the userinfo part of a connection string for error messages.
func redact(conn string) string {
	if u, err := url.Parse(conn); err == nil && u.User != nil {
		return u.Redacted()
	}
	return conn
}
