package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	gcdomain "github.com/dmehra2102/bookwish-storefront/internal/giftcard/domain"
	"github.com/dmehra2102/bookwish-storefront/internal/notification/domain"
	orderdomain "github.com/dmehra2102/bookwish-storefront/internal/order/domain"
)

type Service struct {
	log    *slog.Logger
	mailer Mailer
}

func NewService(log *slog.Logger, mailer Mailer) *Service {
	return &Service{log: log, mailer: mailer}
}

// ErrMalformed marks payloads that will never decode; callers should not retry them.
var ErrMalformed = errors.New("malformed event payload")

// Handle sends the mails an event calls for. Unknown event types are ignored.
func (s *Service) Handle(ctx context.Context, eventType string, payload []byte) error {
	var mails []domain.Mail

	switch eventType {
	case orderdomain.EventOrderSettled:
		var e orderdomain.OrderSettled
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if e.CustomerEmail != "" {
			mails = append(mails, domain.Receipt(e))
		}
		if m := domain.GiftNotice(e); m != nil {
			mails = append(mails, *m)
		}
	case orderdomain.EventOrderStatusChanged:
		var e orderdomain.OrderStatusChanged
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if m := domain.Shipped(e); m != nil {
			mails = append(mails, *m)
		}
	case gcdomain.EventGiftCardIssued:
		var e gcdomain.GiftCardIssued
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		mails = append(mails, domain.GiftCard(e))
	default:
		s.log.Debug("event ignored", "event_type", eventType)
		return nil
	}

	for _, m := range mails {
		if err := s.mailer.Send(ctx, m); err != nil {
			return fmt.Errorf("send %q: %w", m.Subject, err)
		}
		s.log.Info("mail sent", "event_type", eventType, "subject", m.Subject)
	}
	return nil
}
