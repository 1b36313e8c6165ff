package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmehra2102/bookwish-storefront/internal/payment/domain"
	"github.com/dmehra2102/bookwish-storefront/pkg/money"
)

type Service struct {
	log       *slog.Logger
	processor Processor
}

// NewService wraps processor. A nil processor disables card payments.
func NewService(log *slog.Logger, processor Processor) *Service {
	return &Service{log: log, processor: processor}
}

// CreateIntent opens a card payment for amount on behalf of orderID.
func (s *Service) CreateIntent(ctx context.Context, orderID string, amount money.Cents, email string) (domain.Intent, error) {
	if s.processor == nil {
		return domain.Intent{}, domain.ErrCardPaymentsDisabled
	}
	if amount <= 0 {
		return domain.Intent{}, domain.ErrInvalidAmount
	}
	in, err := s.processor.CreateIntent(ctx, domain.IntentParams{OrderID: orderID, Amount: amount, CustomerEmail: email})
	if err != nil {
		return domain.Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	s.log.Info("payment intent created", "order_id", orderID, "intent_id", in.ID, "amount", amount.String())
	return in, nil
}

// Verify confirms that intentID succeeded for at least expected. It never charges.
func (s *Service) Verify(ctx context.Context, intentID, orderID string, expected money.Cents) error {
	if s.processor == nil {
		return domain.ErrCardPaymentsDisabled
	}
	if strings.TrimSpace(intentID) == "" {
		return domain.ErrIntentRequired
	}
	in, err := s.processor.Retrieve(ctx, intentID)
	if err != nil {
		return fmt.Errorf("retrieve payment intent: %w", err)
	}
	if !in.Covers(orderID, expected) {
		s.log.Warn("payment not confirmed", "order_id", orderID, "intent_id", intentID,
			"status", in.Status, "expected", expected.String())
		return domain.ErrNotConfirmed
	}
	return nil
}
