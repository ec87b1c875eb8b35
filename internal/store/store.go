// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/audience-chat/internal/domain"
)

// Product is one catalogue item.
type Product struct {
	SKU             string
	Name            string
	BuyerCategory   string
	ProductCategory string
}

// SavedSelection is a committed audience selection for a thread.
type SavedSelection struct {
	ID         int64             `json:"id"`
	ThreadID   string            `json:"thread_id"`
	Categories []domain.Category `json:"categories"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Repository defines the interface for the catalogue and saved selections.
type Repository interface {
	// SearchProducts returns up to limit products whose name matches query,
	// best matches first. Items in retired categories are never returned.
	SearchProducts(ctx context.Context, query string, limit int) ([]Product, error)

	// UpsertProducts creates or updates catalogue items by SKU.
	UpsertProducts(ctx context.Context, products []Product) error

	// CountProducts returns the number of catalogue items.
	CountProducts(ctx context.Context) (int, error)

	// SaveSelection stores a committed selection for a thread.
	SaveSelection(ctx context.Context, threadID string, categories []domain.Category) (int64, error)

	// ListSelections returns the selections of a thread, oldest first.
	ListSelections(ctx context.Context, threadID string) ([]SavedSelection, error)

	// CleanupExpiredSelections removes selections older than ttl.
	CleanupExpiredSelections(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
