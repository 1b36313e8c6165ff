package domain

import (
	"strings"
	"time"

	"github.com/dmehra2102/bookwish-storefront/pkg/apperr"
	"github.com/dmehra2102/bookwish-storefront/pkg/money"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusRedeemed  Status = "redeemed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

const (
	MsgNotFoundOrInactive = "Gift card not found or inactive"
	MsgBalanceEmpty       = "Gift card balance is empty"
	MsgExpired            = "Gift card has expired"
)

var (
	ErrCodeRequired  = apperr.Validation("Gift card code is required")
	ErrNotFound      = apperr.NotFound("Gift card not found")
	ErrCodeTaken     = apperr.Conflict("Gift card code already exists")
	ErrInvalidAmount = apperr.Validation("Gift card amount must be greater than zero")
	ErrPastExpiry    = apperr.Validation("Gift card expiry must be in the future")
	ErrRecipient     = apperr.Validation("Recipient email is required")
)

type GiftCard struct {
	ID              string
	Code            string
	OriginalAmount  money.Cents
	CurrentBalance  money.Cents
	Currency        string
	RecipientEmail  string
	Message         string
	IssuedBy        string
	Status          Status
	ExpiresAt       *time.Time
	CreatedAt       time.Time
	FullyRedeemedAt *time.Time
}

// NormalizeCode makes lookups case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type CheckResult struct {
	Valid   bool
	Balance money.Cents
	Code    string
	Reason  string
}

// Check validates g at now. The first failing rule wins: active status,
// positive balance, then expiry. A nil card reports not found.
func Check(g *GiftCard, now time.Time) CheckResult {
	if g == nil || g.Status != StatusActive {
		return CheckResult{Reason: MsgNotFoundOrInactive}
	}
	if g.CurrentBalance <= 0 {
		return CheckResult{Reason: MsgBalanceEmpty}
	}
	if g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
		return CheckResult{Reason: MsgExpired}
	}
	return CheckResult{Valid: true, Balance: g.CurrentBalance, Code: g.Code}
}

// Redeem deducts up to amount from the balance and returns what was taken.
// The balance never goes below zero; reaching zero marks the card redeemed.
func (g *GiftCard) Redeem(amount money.Cents, now time.Time) money.Cents {
	if amount <= 0 {
		return 0
	}
	deducted := money.Min(amount, g.CurrentBalance)
	g.CurrentBalance -= deducted
	if deducted > 0 && g.CurrentBalance == 0 {
		g.Status = StatusRedeemed
		at := now.UTC()
		g.FullyRedeemedAt = &at
	}
	return deducted
}

// Available is the balance that may still be redeemed at now. Cancelled,
// redeemed and expired cards have none.
func (g *GiftCard) Available(now time.Time) money.Cents {
	if g.Status != StatusActive {
		return 0
	}
	if g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
		return 0
	}
	return money.Max(0, g.CurrentBalance)
}

type IssueParams struct {
	Amount         money.Cents
	RecipientEmail string
	Message        string
	IssuedBy       string
	ExpiresAt      *time.Time
}

// New builds an active card whose balance equals its original amount.
func New(id, code string, p IssueParams, now time.Time) (GiftCard, error) {
	if p.Amount <= 0 {
		return GiftCard{}, ErrInvalidAmount
	}
	if strings.TrimSpace(p.RecipientEmail) == "" {
		return GiftCard{}, ErrRecipient
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return GiftCard{}, ErrPastExpiry
	}
	return GiftCard{
		ID:             id,
		Code:           NormalizeCode(code),
		OriginalAmount: p.Amount,
		CurrentBalance: p.Amount,
		Currency:       "USD",
		RecipientEmail: strings.TrimSpace(p.RecipientEmail),
		Message:        p.Message,
		IssuedBy:       p.IssuedBy,
		Status:         StatusActive,
		ExpiresAt:      p.ExpiresAt,
		CreatedAt:      now.UTC(),
	}, nil
}
