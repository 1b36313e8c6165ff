package application

import (
	"context"

	gcdomain "github.com/dmehra2102/bookwish-storefront/internal/giftcard/domain"
	"github.com/dmehra2102/bookwish-storefront/internal/order/domain"
	paydomain "github.com/dmehra2102/bookwish-storefront/internal/payment/domain"
	"github.com/dmehra2102/bookwish-storefront/pkg/money"
)

type OrderRepository interface {
	// CreateWithOutbox stores the order, its items and gifts and the event in one transaction.
	CreateWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error
	// Get returns the order with items and gifts.
	Get(ctx context.Context, id string) (domain.Order, error)
	// Settle locks the order and its gift card and persists the Settlement fn returns.
	Settle(ctx context.Context, orderID string, fn SettleFunc) (domain.Order, error)
	// UpdateStatus locks the order, applies fn and stores the result with its event.
	UpdateStatus(ctx context.Context, orderID, traceparent string, fn StatusFunc) (domain.Order, error)
	List(ctx context.Context, f domain.ListFilter) ([]domain.Summary, error)
}

// Settlement is what a settled order writes back. A nil Settlement means
// there was nothing to do.
type Settlement struct {
	Order       domain.Order
	Card        *gcdomain.GiftCard
	Redeemed    money.Cents
	EventType   string
	Payload     []byte
	Traceparent string
}

// SettleFunc sees the locked order and, when the order names one, its locked gift card.
type SettleFunc func(o domain.Order, card *gcdomain.GiftCard) (*Settlement, error)

// StatusFunc mutates the locked order and returns the event to publish.
type StatusFunc func(o *domain.Order) (eventType string, payload []byte, err error)

type Catalog interface {
	PricesFor(ctx context.Context, ids []string) (map[string]domain.CatalogBook, error)
}

type GiftCards interface {
	Check(ctx context.Context, code string) (gcdomain.CheckResult, error)
}

type Payments interface {
	CreateIntent(ctx context.Context, orderID string, amount money.Cents, email string) (paydomain.Intent, error)
	Verify(ctx context.Context, intentID, orderID string, expected money.Cents) error
}
