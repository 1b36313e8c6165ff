package domain

import (
	"github.com/dmehra2102/bookwish-storefront/pkg/apperr"
	"github.com/dmehra2102/bookwish-storefront/pkg/money"
)

type IntentStatus string

const (
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentRequiresAction        IntentStatus = "requires_action"
	IntentProcessing            IntentStatus = "processing"
	IntentSucceeded             IntentStatus = "succeeded"
	IntentCanceled              IntentStatus = "canceled"
)

var (
	ErrNotConfirmed         = apperr.PaymentRequired("Card payment has not been confirmed")
	ErrCardPaymentsDisabled = apperr.PaymentRequired("Card payments are not available")
	ErrIntentRequired       = apperr.Validation("Payment intent is required")
	ErrInvalidAmount        = apperr.Validation("Payment amount must be greater than zero")
)

// Intent is a processor-side payment the client confirms with its card.
type Intent struct {
	ID           string
	OrderID      string
	Amount       money.Cents
	Received     money.Cents
	Currency     string
	Status       IntentStatus
	ClientSecret string
}

// Covers reports whether the intent was opened for orderID and succeeded for
// at least expected.
func (i Intent) Covers(orderID string, expected money.Cents) bool {
	if i.Status != IntentSucceeded || orderID == "" || i.OrderID != orderID {
		return false
	}
	received := i.Received
	if received == 0 {
		received = i.Amount
	}
	return received >= expected
}

type IntentParams struct {
	OrderID       string
	Amount        money.Cents
	CustomerEmail string
}
