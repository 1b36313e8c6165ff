package application

import (
	"context"

	"github.com/dmehra2102/bookwish-storefront/internal/payment/domain"
)

type Processor interface {
	CreateIntent(ctx context.Context, p domain.IntentParams) (domain.Intent, error)
	Retrieve(ctx context.Context, intentID string) (domain.Intent, error)
}
