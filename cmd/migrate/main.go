// Command migrate creates the ledger schema in the configured store and exits.
//
// It reads the same STORE_DRIVER / DATABASE_URL / DB_* / SQLITE_PATH variables
// as the server, so deploys can prepare the database before traffic arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kevin07696/book-market-service/internal/adapters/ledger"
	"github.com/kevin07696/book-market-service/internal/config"
	"go.uber.org/zap"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "give up after this long")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadStoreFromEnv()
	if err != nil {
		logger.Fatal("Invalid store configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := ledger.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to migrate ledger schema",
			zap.String("driver", cfg.Driver),
			zap.Error(err),
		)
	}
	defer store.Close()

	if err := store.HealthCheck(ctx); err != nil {
		logger.Fatal("Store unreachable after migration", zap.Error(err))
	}

	logger.Info("Ledger schema is up to date", zap.String("driver", cfg.Driver))
}
