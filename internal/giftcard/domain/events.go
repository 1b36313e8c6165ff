package domain

import "github.com/dmehra2102/bookwish-storefront/pkg/money"

const EventGiftCardIssued = "GiftCardIssued"

type GiftCardIssued struct {
	Code           string      `json:"code"`
	Amount         money.Cents `json:"amount"`
	RecipientEmail string      `json:"recipient_email"`
	Message        string      `json:"message,omitempty"`
}
