package application

import (
	"context"
	"time"

	"github.com/dmehra2102/bookwish-storefront/internal/wishlist/domain"
)

type ListRepository interface {
	// FindPublicList returns domain.ErrListNotFound for unknown or private codes.
	FindPublicList(ctx context.Context, shareCode string) (domain.ShareableList, error)
	FindOwner(ctx context.Context, userID string) (domain.Owner, error)
	WantedBooks(ctx context.Context, userID string) ([]domain.Book, error)
	IncrementViews(ctx context.Context, listID string, at time.Time) error
	BooksByID(ctx context.Context, ids []string) ([]domain.Book, error)
}
