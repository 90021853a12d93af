package seed

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/ounjeeh/staples/internal/services/catalog"
	"github.com/ounjeeh/staples/internal/services/catalog/storage"
	"github.com/ounjeeh/staples/internal/services/catalog/storage/sqlite"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "data/staples.db" || cfg.DryRun {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestParseConfigFlags(t *testing.T) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-db", "x.db", "-dry-run"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "x.db" || !cfg.DryRun {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Honey Beans":        "honey-beans",
		"Yam Flour (Elubo)":  "yam-flour-elubo",
		"  Pure Palm Oil  ":  "pure-palm-oil",
		"Ofada Rice & Beans": "ofada-rice-beans",
		"5kg Garri":          "5kg-garri",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToRecord(t *testing.T) {
	got := ToRecord(catalog.Product{
		Name:        "Pure Palm Oil",
		Description: "Red oil",
		Category:    catalog.CategoryOils,
		Image:       "https://cdn.example.com/oil.jpg",
		PriceKobo:   250000,
		HasPrice:    true,
		StockStatus: catalog.LowStock,
	})
	price := int64(250000)
	want := storage.ProductRecord{
		ProductID:   "pure-palm-oil",
		ProductName: "Pure Palm Oil",
		Description: "Red oil",
		Category:    "oils",
		PriceKobo:   &price,
		StockStatus: string(catalog.LowStock),
		ImageURL:    "https://cdn.example.com/oil.jpg",
		IsPrimary:   true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ToRecord mismatch (-want +got):\n%s", diff)
	}
	if ToRecord(catalog.Product{Name: "x"}).PriceKobo != nil {
		t.Fatal("unpriced product got a price")
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "staples.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()
	products := catalog.FallbackProducts()

	first, err := Seed(ctx, store, products, false, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(first.Created) != len(products) || first.Skipped != 0 {
		t.Fatalf("first run = %+v", first)
	}

	second, err := Seed(ctx, store, products, false, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("seed again: %v", err)
	}
	if len(second.Created) != 0 || second.Skipped != len(products) {
		t.Fatalf("second run = %+v", second)
	}

	records, err := store.ListProductRecords(ctx, storage.ProductFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != len(products) {
		t.Fatalf("stored %d records, want %d", len(records), len(products))
	}
	if !slices.ContainsFunc(records, func(r storage.ProductRecord) bool { return r.ProductID == "honey-beans" }) {
		t.Fatal("honey-beans not stored")
	}
}

func TestSeedDryRunWritesNothing(t *testing.T) {
	store := &fakeStore{}
	result, err := Seed(context.Background(), store, catalog.FallbackProducts(), true, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(result.Created) != len(catalog.FallbackProducts()) {
		t.Fatalf("created = %v", result.Created)
	}
	if store.creates != 0 {
		t.Fatalf("dry run wrote %d records", store.creates)
	}
}

func TestSeedReportsWriteFailure(t *testing.T) {
	store := &fakeStore{createErr: errors.New("disk full")}
	_, err := Seed(context.Background(), store, catalog.FallbackProducts()[:1], false, nil)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunPrintsSummary(t *testing.T) {
	var out bytes.Buffer
	cfg := Config{DBPath: filepath.Join(t.TempDir(), "staples.db"), DryRun: true}
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "Would seed 6 products (0 already present).") {
		t.Fatalf("output = %q", out.String())
	}
}

type fakeStore struct {
	storage.ProductStore
	creates   int
	createErr error
}

func (f *fakeStore) ListProductRecords(context.Context, storage.ProductFilter) ([]storage.ProductRecord, error) {
	return nil, nil
}

func (f *fakeStore) CreateProductRecord(_ context.Context, r storage.ProductRecord) (storage.ProductRecord, error) {
	if f.createErr != nil {
		return storage.ProductRecord{}, f.createErr
	}
	f.creates++
	return r, nil
}
