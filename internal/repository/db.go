package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	URL              string // postgres://... or sqlite:<path>
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// Client is the shared database handle. Repositories run their statements
// through it so a transaction started with WithTx is picked up from ctx.
type Client struct {
	driver  *entsql.Driver
	pool    *pgxpool.Pool
	dialect string
	logger  *slog.Logger
}

// Open connects to Postgres through a pgx pool or to SQLite through modernc,
// depending on the URL scheme, and wraps the handle in an ent SQL driver.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch {
	case strings.HasPrefix(cfg.URL, "postgres://"), strings.HasPrefix(cfg.URL, "postgresql://"):
		return openPostgres(ctx, cfg, logger)
	case strings.HasPrefix(cfg.URL, "sqlite:"):
		return openSQLite(strings.TrimPrefix(cfg.URL, "sqlite:"), logger)
	default:
		return nil, fmt.Errorf("unsupported database url %q: want postgres:// or sqlite:<path>", cfg.URL)
	}
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	logger.Info("connecting to database", "dialect", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		logger.Error("failed to parse database url", "error", err)
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "tradedocs"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	// Wrap pool as *sql.DB for ent's driver.
	db := stdlib.OpenDBFromPool(pool)
	drv := entsql.OpenDB(dialect.Postgres, db)

	logger.Info("successfully connected to database")
	return &Client{driver: drv, pool: pool, dialect: dialect.Postgres, logger: logger}, nil
}

func openSQLite(path string, logger *slog.Logger) (*Client, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	logger.Info("opening database", "dialect", dialect.SQLite, "path", path)

	// Pragmas are applied per connection by the driver.
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return nil, err
	}
	drv := entsql.OpenDB(dialect.SQLite, db)
	return &Client{driver: drv, dialect: dialect.SQLite, logger: logger}, nil
}

// Dialect returns the ent dialect name in use.
func (c *Client) Dialect() string { return c.dialect }

// Close closes the database connections gracefully
func (c *Client) Close() {
	c.logger.Info("closing database connections")
	if err := c.driver.Close(); err != nil {
		c.logger.Error("failed to close ent driver", "error", err)
	}
	if c.pool != nil {
		c.pool.Close()
	}
	c.logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (c *Client) HealthCheck(ctx context.Context, timeout time.Duration) error {
	c.logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var err error
	if c.pool != nil {
		err = c.pool.Ping(ctx)
	} else {
		err = c.driver.DB().PingContext(ctx)
	}
	if err != nil {
		c.logger.Error("database ping failed", "error", err)
		return err
	}
	c.logger.Debug("database ping successful")
	return nil
}

type txKey struct{}

// WithTx runs fn inside a transaction. Repository calls made with the ctx
// passed to fn join the transaction. Nested calls reuse the outer one.
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(dialect.Tx); ok {
		return fn(ctx)
	}
	tx, err := c.driver.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			c.logger.Error("tx rollback failed", "error", rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (c *Client) conn(ctx context.Context) dialect.ExecQuerier {
	if tx, ok := ctx.Value(txKey{}).(dialect.Tx); ok {
		return tx
	}
	return c.driver
}

// builder returns a statement builder for the client's dialect.
func (c *Client) builder() *entsql.DialectBuilder {
	return entsql.Dialect(c.dialect)
}

func (c *Client) exec(ctx context.Context, query string, args []any) (int64, error) {
	if args == nil {
		args = []any{}
	}
	var res sql.Result
	if err := c.conn(ctx).Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// rowsAffected surfaces driver errors instead of reporting zero rows, which
// callers would otherwise turn into NotFound.
func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (c *Client) query(ctx context.Context, query string, args []any, scan func(rows *entsql.Rows) error) error {
	if args == nil {
		args = []any{}
	}
	var rows entsql.Rows
	if err := c.conn(ctx).Query(ctx, query, args, &rows); err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(&rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func now() time.Time {
	return time.Now().UTC()
}
