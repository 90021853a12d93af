// Package storage defines persistence contracts for catalog records.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// ProductRecord is one admin-managed product with its uploaded image.
type ProductRecord struct {
	ID          string
	ProductID   string
	ProductName string
	Description string
	Category    string
	// PriceKobo is nil when the product has no listed price.
	PriceKobo   *int64
	StockStatus string
	ImageURL    string
	ImagePath   string
	IsPrimary   bool
	// VerifiedAt is set once the public image URL was fetched successfully.
	VerifiedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProductFilter narrows ListProductRecords.
type ProductFilter struct {
	ProductID string
	Category  string
}

// TeamMember is one person shown in the team section.
type TeamMember struct {
	ID           string
	Name         string
	Role         string
	ImageURL     string
	ImagePath    string
	DisplayOrder int
	IsActive     bool
	CreatedAt    time.Time
}

// ProductStore persists product records.
type ProductStore interface {
	CreateProductRecord(ctx context.Context, record ProductRecord) (ProductRecord, error)
	GetProductRecord(ctx context.Context, id string) (ProductRecord, error)
	UpdateProductRecord(ctx context.Context, record ProductRecord) (ProductRecord, error)
	DeleteProductRecord(ctx context.Context, id string) error
	// ListProductRecords returns records newest first.
	ListProductRecords(ctx context.Context, filter ProductFilter) ([]ProductRecord, error)
	MarkProductImageVerified(ctx context.Context, id string, at time.Time) error
}

// TeamStore persists team members.
type TeamStore interface {
	CreateTeamMember(ctx context.Context, member TeamMember) (TeamMember, error)
	GetTeamMember(ctx context.Context, id string) (TeamMember, error)
	DeleteTeamMember(ctx context.Context, id string) error
	// ListActiveTeamMembers returns active members by display order.
	ListActiveTeamMembers(ctx context.Context) ([]TeamMember, error)
}

// Store is the full catalog persistence contract.
type Store interface {
	ProductStore
	TeamStore
	Close() error
}
