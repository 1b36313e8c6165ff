package domain

import (
	"strings"
	"time"

	"github.com/dmehra2102/bookwish-storefront/pkg/apperr"
	"github.com/dmehra2102/bookwish-storefront/pkg/money"
)

const (
	PlatformWeb       = "web"
	GiftStatusBought  = "purchased"
	giftCardPaymentID = "gift_card_"
)

var (
	ErrNotFound         = apperr.NotFound("Order not found")
	ErrEmptyOrder       = apperr.Validation("Order must contain at least one item")
	ErrCustomerEmail    = apperr.Validation("Customer email is required")
	ErrTotalsMismatch   = apperr.Conflict("Order totals do not match current prices")
	ErrGiftCardMismatch = apperr.Validation("Gift card code does not match order")
	ErrAmountDue        = apperr.PaymentRequired("Order has an outstanding balance to pay by card")
	ErrNoGiftCard       = apperr.Validation("Order was not placed with a gift card")
	ErrGiftCardShort    = apperr.PaymentRequired("Gift card no longer covers this order")
)

type ShippingAddress struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
	Country      string `json:"country"`
	IsVerified   bool   `json:"is_verified"`
}

// Validate reports the first missing required field.
func (a ShippingAddress) Validate() error {
	required := []struct{ name, value string }{
		{"first name", a.FirstName},
		{"last name", a.LastName},
		{"address line 1", a.AddressLine1},
		{"city", a.City},
		{"state", a.State},
		{"zip code", a.ZipCode},
		{"country", a.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return apperr.Validation("Shipping " + f.name + " is required")
		}
	}
	return nil
}

func (a ShippingAddress) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

type Customer struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email"`
}

type GiftInfo struct {
	IsGift          bool   `json:"isGift"`
	Message         string `json:"message,omitempty"`
	RecipientEmail  string `json:"recipientEmail,omitempty"`
	RecipientUserID string `json:"recipientUserId,omitempty"`
	GiftCardCode    string `json:"giftCardCode,omitempty"`
}

type Item struct {
	ID        string      `json:"id"`
	OrderID   string      `json:"order_id"`
	BookID    string      `json:"book_id"`
	Title     string      `json:"title"`
	Author    string      `json:"author"`
	Quantity  int         `json:"quantity"`
	UnitPrice money.Cents `json:"price"`
}

// Gift links one purchased book to its order, sender and recipient.
type Gift struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	BookID     string    `json:"book_id"`
	FromUserID string    `json:"from_user_id,omitempty"`
	ToUserID   string    `json:"to_user_id,omitempty"`
	Message    string    `json:"message,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Order stores the nominal total and, separately, what the gift card and the
// card processor actually collected at settlement.
type Order struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id,omitempty"`
	CustomerEmail string `json:"customer_email"`
	Breakdown
	GiftCardCode    string          `json:"gift_card_code,omitempty"`
	GiftCardApplied money.Cents     `json:"gift_card_applied"`
	AmountCollected money.Cents     `json:"amount_collected"`
	Status          Status          `json:"status"`
	PaymentID       string          `json:"payment_id"`
	Platform        string          `json:"platform"`
	ItemCount       int             `json:"item_count"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	IsGift          bool            `json:"is_gift"`
	GiftMessage     string          `json:"gift_message,omitempty"`
	RecipientEmail  string          `json:"recipient_email,omitempty"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
	ConfirmedAt     *time.Time      `json:"confirmed_at,omitempty"`
	OrderedAt       *time.Time      `json:"ordered_at,omitempty"`
	ShippedAt       *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []Item          `json:"items,omitempty"`
	Gifts           []Gift          `json:"gifts,omitempty"`
}

type NewOrderParams struct {
	ID              string
	Customer        Customer
	ShippingAddress ShippingAddress
	Gift            GiftInfo
	Lines           []Line
	Breakdown       Breakdown
	GiftCardCode    string
	PaymentID       string
	Now             time.Time
	NewID           func() string
}

// NewOrder builds a pending order with one item row and one gift row per line.
func NewOrder(p NewOrderParams) Order {
	now := p.Now.UTC()
	o := Order{
		ID:              p.ID,
		UserID:          p.Customer.ID,
		CustomerEmail:   strings.TrimSpace(p.Customer.Email),
		Breakdown:       p.Breakdown,
		GiftCardCode:    p.GiftCardCode,
		Status:          StatusPending,
		PaymentID:       p.PaymentID,
		Platform:        PlatformWeb,
		ItemCount:       len(p.Lines),
		ShippingAddress: p.ShippingAddress,
		IsGift:          p.Gift.IsGift,
		GiftMessage:     p.Gift.Message,
		RecipientEmail:  p.Gift.RecipientEmail,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, l := range p.Lines {
		o.Items = append(o.Items, Item{
			ID:        p.NewID(),
			OrderID:   o.ID,
			BookID:    l.BookID,
			Title:     l.Title,
			Author:    l.Author,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
		to := p.Gift.RecipientUserID
		if to == "" {
			to = l.OwnerID
		}
		o.Gifts = append(o.Gifts, Gift{
			ID:         p.NewID(),
			OrderID:    o.ID,
			BookID:     l.BookID,
			FromUserID: p.Customer.ID,
			ToUserID:   to,
			Message:    p.Gift.Message,
			Status:     GiftStatusBought,
			CreatedAt:  now,
		})
	}
	return o
}

// GiftCardPaymentID is the payment reference of orders the gift card covers in full.
func GiftCardPaymentID(code string) string {
	return giftCardPaymentID + code
}

// Confirm settles a pending order. It returns false when the order was
// already settled, which callers treat as success.
func (o *Order) Confirm(giftCardApplied, collected money.Cents, now time.Time) bool {
	if o.Status != StatusPending {
		return false
	}
	at := now.UTC()
	o.Status = StatusConfirmed
	o.ConfirmedAt = &at
	o.GiftCardApplied = giftCardApplied
	o.AmountCollected = collected
	o.UpdatedAt = at
	return true
}

// Summary is one row of the admin order list.
type Summary struct {
	ID           string      `json:"id"`
	CustomerName string      `json:"customer_name"`
	TotalAmount  money.Cents `json:"total_amount"`
	Status       Status      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	ItemsCount   int         `json:"items_count"`
}

type ListFilter struct {
	Limit  int
	Offset int
	Status Status
}
