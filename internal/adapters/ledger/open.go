// Package ledger opens the ledger store selected by configuration.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/kevin07696/book-market-service/internal/adapters/postgres"
	"github.com/kevin07696/book-market-service/internal/adapters/sqlite"
	"github.com/kevin07696/book-market-service/internal/config"
	"github.com/kevin07696/book-market-service/internal/domain/ports"
	"go.uber.org/zap"
)

// Open connects to the configured store and ensures its schema exists.
// Postgres pool monitoring runs until ctx is cancelled.
func Open(ctx context.Context, cfg *config.StoreConfig, logger *zap.Logger) (ports.LedgerStore, error) {
	switch cfg.Driver {
	case "postgres":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pgCfg := postgres.DefaultConfig(cfg.ConnectionString())
		pgCfg.MaxConns = cfg.MaxConns
		pgCfg.MinConns = cfg.MinConns

		store, err := postgres.NewStore(connectCtx, pgCfg, logger)
		if err != nil {
			return nil, err
		}
		store.StartPoolMonitoring(ctx, time.Minute)
		return store, nil

	case "sqlite":
		return sqlite.New(cfg.SQLitePath, logger)

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
