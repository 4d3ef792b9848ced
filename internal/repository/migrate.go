package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/tradedocs/db/migrations"
)

// Migrate applies every embedded *.up.sql file newer than the recorded
// schema version. Each file runs in its own transaction.
func (c *Client) Migrate(ctx context.Context) error {
	db := c.driver.DB()
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := c.applyMigration(ctx, db, version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		c.logger.Info("db.migration.applied", "version", version, "file", name)
	}
	return nil
}

func (c *Client) applyMigration(ctx context.Context, db *sql.DB, version int, content string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, content); err != nil {
		return err
	}
	q, args := c.builder().Insert("schema_migrations").
		Columns("version", "applied_at").
		Values(version, now()).
		Query()
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration version.
func (c *Client) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := c.query(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations", nil, func(rows *entsql.Rows) error {
		return rows.Scan(&version)
	})
	return version, err
}
