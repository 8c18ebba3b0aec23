package sqldb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

type Config struct {
	Driver         string
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	ConnectTimeout time.Duration
	MaxOpenConns   int
	MaxIdleConns   int
}

// New opens a pool for cfg.Driver, checks it with a ping and creates the
// detection tables when they are missing.
func New(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.Driver == DriverSQLite {
		// a single connection keeps in-memory databases shared
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout(cfg))
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func DSN(cfg Config) (string, error) {
	switch cfg.Driver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.Loc = time.Local
		mc.Timeout = connectTimeout(cfg)
		return mc.FormatDSN(), nil

	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Path:   "/" + cfg.Name,
		}
		q := u.Query()
		q.Set("sslmode", "disable")
		q.Set("connect_timeout", strconv.Itoa(int(connectTimeout(cfg).Seconds())))
		u.RawQuery = q.Encode()
		return u.String(), nil

	case DriverSQLite:
		if cfg.Name == "" {
			return ":memory:", nil
		}
		return cfg.Name, nil

	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func connectTimeout(cfg Config) time.Duration {
	if cfg.ConnectTimeout <= 0 {
		return 10 * time.Second
	}
	return cfg.ConnectTimeout
}

// ListTables is the startup probe: it returns every table name visible to
// the connection.
func ListTables(ctx context.Context, db *sqlx.DB) ([]string, error) {
	var query string
	switch db.DriverName() {
	case DriverMySQL:
		query = "SHOW TABLES"
	case DriverPostgres:
		query = "SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = current_schema() ORDER BY tablename"
	case DriverSQLite:
		query = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", db.DriverName())
	}

	var tables []string
	if err := db.SelectContext(ctx, &tables, query); err != nil {
		return nil, err
	}
	return tables, nil
}
