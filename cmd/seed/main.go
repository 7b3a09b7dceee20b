// Command seed lists demo books through the catalog service so a fresh
// environment has something to buy.
//
//	seed                 # built-in sample listings
//	seed -file books.json
//
// The file holds a JSON array of listings in the /save-book request shape.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kevin07696/book-market-service/internal/adapters/ledger"
	"github.com/kevin07696/book-market-service/internal/config"
	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/services/catalog"
	"github.com/kevin07696/book-market-service/pkg/security"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type listing struct {
	Title       string           `json:"title"`
	Price       decimal.Decimal  `json:"price"`
	Description string           `json:"description"`
	Language    string           `json:"language"`
	PageCount   domain.PageCount `json:"pageCount"`
	Cover       string           `json:"cover"`
	PDF         string           `json:"pdf"`
	Owner       string           `json:"owner"`
	OwnerUID    string           `json:"ownerUid"`
}

var samples = []listing{
	{
		Title:       "Mining Pi on a Phone",
		Price:       decimal.RequireFromString("3.14"),
		Description: "A field guide for new pioneers",
		Language:    "English",
		PageCount:   "120",
		Cover:       "https://example.com/covers/mining.jpg",
		PDF:         "https://example.com/pdf/mining.pdf",
		Owner:       "demo_author",
		OwnerUID:    "demo_author_uid",
	},
	{
		Title:       "Short Stories for Long Blocks",
		Price:       decimal.RequireFromString("1.5"),
		Description: "Twelve stories, one per confirmation",
		Language:    "English",
		Cover:       "https://example.com/covers/stories.jpg",
		PDF:         "https://example.com/pdf/stories.pdf",
		Owner:       "demo_author",
		OwnerUID:    "demo_author_uid",
	},
}

func main() {
	file := flag.String("file", "", "JSON array of listings (default: built-in samples)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	listings := samples
	if *file != "" {
		if listings, err = readListings(*file); err != nil {
			logger.Fatal("Failed to read listings", zap.String("file", *file), zap.Error(err))
		}
	}

	cfg, err := config.LoadStoreFromEnv()
	if err != nil {
		logger.Fatal("Invalid store configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := ledger.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer store.Close()

	svc := catalog.NewService(store, security.NewZapLogger(logger))

	created := 0
	for _, l := range listings {
		id, err := svc.SaveBook(ctx, &domain.NewBookInput{
			Title:       l.Title,
			Price:       l.Price,
			Description: l.Description,
			Language:    l.Language,
			PageCount:   l.PageCount,
			Cover:       l.Cover,
			PDF:         l.PDF,
			Owner:       l.Owner,
			OwnerUID:    l.OwnerUID,
		})
		if err != nil {
			logger.Error("Skipping listing", zap.String("title", l.Title), zap.Error(err))
			continue
		}
		created++
		logger.Info("Listed book", zap.String("book_id", id), zap.String("title", l.Title))
	}

	logger.Info("Seeding finished", zap.Int("created", created), zap.Int("total", len(listings)))
}

func readListings(path string) ([]listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []listing
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}
