// Package catalog models the staples the site sells and resolves which
// catalog visitors see.
package catalog

import (
	"slices"
	"strings"
)

// Brand names shown across the site.
const (
	BrandName     = "OUNJEEH"
	ParentCompany = "Demmy Agro-Allied Ventures"
)

// CategoryID identifies a product category.
type CategoryID string

const (
	CategoryAll       CategoryID = "all"
	CategoryGrains    CategoryID = "grains"
	CategoryProcessed CategoryID = "processed"
	CategoryOils      CategoryID = "oils"
	CategoryProteins  CategoryID = "proteins"
)

// Tag marks who a product suits.
type Tag string

const (
	TagHome     Tag = "Home"
	TagRetail   Tag = "Retail"
	TagBusiness Tag = "Business"
)

// StockStatus is the availability shown on a product card.
type StockStatus string

const (
	InStock    StockStatus = "in-stock"
	LowStock   StockStatus = "low-stock"
	OutOfStock StockStatus = "out-of-stock"
)

// StockStatuses lists the accepted stock statuses.
func StockStatuses() []StockStatus {
	return []StockStatus{InStock, LowStock, OutOfStock}
}

// Valid reports whether s is a known status.
func (s StockStatus) Valid() bool {
	return slices.Contains(StockStatuses(), s)
}

// Label returns the human label for s.
func (s StockStatus) Label() string {
	switch s {
	case InStock:
		return "In stock"
	case LowStock:
		return "Low stock"
	case OutOfStock:
		return "Out of stock"
	default:
		return ""
	}
}

// Product is one item on the catalog.
type Product struct {
	ID          string
	Name        string
	LocalName   string
	Description string
	Category    CategoryID
	Tags        []Tag
	Image       string
	Details     string
	// PriceKobo is meaningful only when HasPrice is set.
	PriceKobo   int64
	HasPrice    bool
	StockStatus StockStatus
}

// Category groups products on the storefront.
type Category struct {
	ID          CategoryID
	Title       string
	Description string
}

// Testimonial is a customer quote.
type Testimonial struct {
	Name    string
	Role    string
	Content string
}

// ServingBlock describes one audience the business serves.
type ServingBlock struct {
	Title     string
	Audience  string
	Problems  []string
	Solutions []string
	Icon      string
}

// TeamMember is a person shown on the team page.
type TeamMember struct {
	ID       string
	Name     string
	Role     string
	ImageURL string
}

// ParseCategory resolves a category filter. Unknown and empty values mean all.
func ParseCategory(raw string) CategoryID {
	id := CategoryID(strings.ToLower(strings.TrimSpace(raw)))
	if ValidCategory(id) {
		return id
	}
	return CategoryAll
}

// ValidCategory reports whether id names a concrete category.
func ValidCategory(id CategoryID) bool {
	for _, c := range Categories() {
		if c.ID == id {
			return true
		}
	}
	return false
}

// CategoryTitle returns the display title for id.
func CategoryTitle(id CategoryID) string {
	for _, c := range Categories() {
		if c.ID == id {
			return c.Title
		}
	}
	return "All Products"
}

// Filter returns the products in category, keeping order. CategoryAll and the
// empty id keep everything.
func Filter(products []Product, category CategoryID) []Product {
	if category == "" || category == CategoryAll {
		return slices.Clone(products)
	}
	var out []Product
	for _, p := range products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// ImageRecord is the part of an uploaded product image MergeImages needs.
type ImageRecord struct {
	ProductID string
	ImageURL  string
	IsPrimary bool
}

// MergeImages replaces product images with uploaded ones. For each product the
// first seen record is used unless a later one is primary. Products without an
// upload keep their built-in image.
func MergeImages(products []Product, records []ImageRecord) []Product {
	images := make(map[string]string, len(records))
	for _, r := range records {
		if r.ImageURL == "" {
			continue
		}
		if _, seen := images[r.ProductID]; !seen || r.IsPrimary {
			images[r.ProductID] = r.ImageURL
		}
	}
	out := make([]Product, len(products))
	for i, p := range products {
		if url, ok := images[p.ID]; ok {
			p.Image = url
		}
		out[i] = p
	}
	return out
}
