// Package repository defines persistence interfaces for the explorer domain.
package repository

import (
	"context"

	"github.com/darshil44/AI-Powered-Content-Explorer/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// HistoryRepository defines the interface for tool invocation history.
type HistoryRepository interface {
	// CreateSearch inserts a search record and returns nothing; the record's
	// ID must be set by the caller.
	CreateSearch(ctx context.Context, rec *domain.SearchRecord) error

	// CreateImage inserts an image record.
	CreateImage(ctx context.Context, rec *domain.ImageRecord) error

	// List returns history items for the user matching the filter, newest
	// first.
	List(ctx context.Context, userID string, filter domain.HistoryFilter) ([]domain.HistoryItem, error)

	// DeleteSearch removes a search record owned by the user.
	DeleteSearch(ctx context.Context, userID, id string) error

	// DeleteImage removes an image record owned by the user.
	DeleteImage(ctx context.Context, userID, id string) error
}
