package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/ounjeeh/staples/internal/services/catalog/storage"
)

// Origin tells where a resolved catalog came from.
type Origin string

const (
	OriginDatabase Origin = "database"
	OriginFallback Origin = "fallback"
)

// RecordReader is the storage the Source reads.
type RecordReader interface {
	ListProductRecords(ctx context.Context, filter storage.ProductFilter) ([]storage.ProductRecord, error)
	ListActiveTeamMembers(ctx context.Context) ([]storage.TeamMember, error)
}

// Source resolves the catalog shown to visitors: stored products newest first,
// or the built-in catalog when nothing is stored or storage fails.
type Source struct {
	records RecordReader
	logger  *zap.Logger
}

// NewSource builds a Source. A nil reader always serves the fallback catalog.
func NewSource(records RecordReader, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{records: records, logger: logger}
}

// Products returns the visitor catalog and where it came from.
func (s *Source) Products(ctx context.Context) ([]Product, Origin) {
	if s == nil || s.records == nil {
		return FallbackProducts(), OriginFallback
	}
	records, err := s.records.ListProductRecords(ctx, storage.ProductFilter{})
	if err != nil {
		s.logger.Warn("loading products failed, using fallback catalog", zap.Error(err))
		return FallbackProducts(), OriginFallback
	}
	if len(records) == 0 {
		return FallbackProducts(), OriginFallback
	}

	products := make([]Product, 0, len(records))
	images := make([]ImageRecord, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		images = append(images, ImageRecord{ProductID: r.ProductID, ImageURL: r.ImageURL, IsPrimary: r.IsPrimary})
		if seen[r.ProductID] {
			continue
		}
		seen[r.ProductID] = true
		products = append(products, FromRecord(r))
	}
	return MergeImages(products, images), OriginDatabase
}

// Team returns the active team members. Storage failures yield an empty team.
func (s *Source) Team(ctx context.Context) []TeamMember {
	if s == nil || s.records == nil {
		return nil
	}
	members, err := s.records.ListActiveTeamMembers(ctx)
	if err != nil {
		s.logger.Warn("loading team failed", zap.Error(err))
		return nil
	}
	out := make([]TeamMember, 0, len(members))
	for _, m := range members {
		out = append(out, TeamMember{ID: m.ID, Name: m.Name, Role: m.Role, ImageURL: m.ImageURL})
	}
	return out
}

// FromRecord converts a stored record into a catalog product.
func FromRecord(r storage.ProductRecord) Product {
	category := CategoryID(r.Category)
	if !ValidCategory(category) {
		category = CategoryGrains
	}
	status := StockStatus(r.StockStatus)
	if !status.Valid() {
		status = InStock
	}
	p := Product{
		ID:          r.ProductID,
		Name:        r.ProductName,
		Description: r.Description,
		Category:    category,
		Image:       r.ImageURL,
		Details:     r.Description,
		StockStatus: status,
	}
	if r.PriceKobo != nil {
		p.PriceKobo = *r.PriceKobo
		p.HasPrice = true
	}
	return p
}
