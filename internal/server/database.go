package server

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/tradedocs/internal/common"
	repo "github.com/joseph-ayodele/tradedocs/internal/repository"
)

// ConnectDB opens the configured database, applies pending migrations and
// pings it once so a bad DB_URL fails at startup.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repo.Client, error) {
	client, err := repo.Open(ctx, repo.Config{
		URL:              cfg.URL,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, common.NewAppError("DATABASE_ERROR", "open database", err)
	}
	if err := client.Migrate(ctx); err != nil {
		client.Close()
		return nil, common.NewAppError("DATABASE_ERROR", "migrate database", err)
	}
	if err := client.HealthCheck(ctx, cfg.DialTimeout); err != nil {
		client.Close()
		return nil, common.NewAppError("DATABASE_ERROR", "database health check", err)
	}
	return client, nil
}
