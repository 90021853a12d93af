// Package seed loads the built-in catalog into the records store.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	entrypoint "github.com/ounjeeh/staples/internal/platform/cmd"
	"github.com/ounjeeh/staples/internal/services/catalog"
	"github.com/ounjeeh/staples/internal/services/catalog/storage"
	"github.com/ounjeeh/staples/internal/services/catalog/storage/sqlite"
)

// maxConcurrentWrites bounds in-flight inserts.
const maxConcurrentWrites = 4

// Config holds seed command configuration.
type Config struct {
	DBPath string `env:"DB_PATH" envDefault:"data/staples.db"`
	DryRun bool   `env:"SEED_DRY_RUN"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite catalog database path")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "list what would be seeded without writing")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run seeds the catalog store and reports what changed to out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(ctx context.Context, logger *zap.Logger) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open catalog store: %w", err)
		}
		defer store.Close()

		result, err := Seed(ctx, store, catalog.FallbackProducts(), cfg.DryRun, logger)
		if err != nil {
			return err
		}
		verb := "Seeded"
		if cfg.DryRun {
			verb = "Would seed"
		}
		fmt.Fprintf(out, "%s %d products (%d already present).\n", verb, len(result.Created), result.Skipped)
		for _, id := range result.Created {
			fmt.Fprintf(out, "  %s\n", id)
		}
		return nil
	})
}

// Result lists the product ids Seed created and how many already existed.
type Result struct {
	Created []string
	Skipped int
}

// Seed inserts every product whose product id is not stored yet. Running it
// twice leaves the store unchanged.
func Seed(ctx context.Context, store storage.ProductStore, products []catalog.Product, dryRun bool, logger *zap.Logger) (Result, error) {
	if store == nil {
		return Result{}, fmt.Errorf("product store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	existing, err := store.ListProductRecords(ctx, storage.ProductFilter{})
	if err != nil {
		return Result{}, fmt.Errorf("list products: %w", err)
	}
	stored := make(map[string]bool, len(existing))
	for _, r := range existing {
		stored[r.ProductID] = true
	}

	var (
		result Result
		mu     sync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentWrites)
	for _, p := range products {
		record := ToRecord(p)
		if stored[record.ProductID] {
			result.Skipped++
			continue
		}
		stored[record.ProductID] = true
		if dryRun {
			result.Created = append(result.Created, record.ProductID)
			continue
		}
		g.Go(func() error {
			if _, err := store.CreateProductRecord(gctx, record); err != nil {
				return fmt.Errorf("create %s: %w", record.ProductID, err)
			}
			logger.Debug("seeded product", zap.String("product_id", record.ProductID))
			mu.Lock()
			result.Created = append(result.Created, record.ProductID)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

// ToRecord converts a catalog product into a stored record.
func ToRecord(p catalog.Product) storage.ProductRecord {
	record := storage.ProductRecord{
		ProductID:   Slug(p.Name),
		ProductName: p.Name,
		Description: p.Description,
		Category:    string(p.Category),
		StockStatus: string(p.StockStatus),
		ImageURL:    p.Image,
		IsPrimary:   true,
	}
	if p.HasPrice {
		price := p.PriceKobo
		record.PriceKobo = &price
	}
	return record
}

// Slug lowercases name and joins its letters and digits with dashes.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}
