package application

import (
	"context"

	"github.com/dmehra2102/bookwish-storefront/internal/giftcard/domain"
)

type GiftCardRepository interface {
	// FindByCode returns domain.ErrNotFound for unknown codes.
	FindByCode(ctx context.Context, code string) (domain.GiftCard, error)
	// CreateWithOutbox returns domain.ErrCodeTaken on a code collision.
	CreateWithOutbox(ctx context.Context, g domain.GiftCard, eventType string, payload []byte, traceparent string) error
	List(ctx context.Context, limit, offset int) ([]domain.GiftCard, error)
}
