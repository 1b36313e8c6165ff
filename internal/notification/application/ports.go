package application

import (
	"context"

	"github.com/dmehra2102/bookwish-storefront/internal/notification/domain"
)

type Mailer interface {
	Send(ctx context.Context, m domain.Mail) error
}
