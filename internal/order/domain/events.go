package domain

import "github.com/dmehra2102/bookwish-storefront/pkg/money"

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderSettled       = "OrderSettled"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type OrderCreated struct {
	OrderID       string      `json:"order_id"`
	CustomerEmail string      `json:"customer_email"`
	Total         money.Cents `json:"total"`
	AmountDue     money.Cents `json:"amount_due"`
	GiftCardCode  string      `json:"gift_card_code,omitempty"`
	Items         []Item      `json:"items"`
}

type OrderSettled struct {
	OrderID         string      `json:"order_id"`
	CustomerEmail   string      `json:"customer_email"`
	CustomerName    string      `json:"customer_name"`
	Total           money.Cents `json:"total"`
	AmountCollected money.Cents `json:"amount_collected"`
	GiftCardApplied money.Cents `json:"gift_card_applied"`
	IsGift          bool        `json:"is_gift"`
	RecipientEmail  string      `json:"recipient_email,omitempty"`
	GiftMessage     string      `json:"gift_message,omitempty"`
	Titles          []string    `json:"titles"`
}

type OrderStatusChanged struct {
	OrderID        string `json:"order_id"`
	From           Status `json:"from"`
	To             Status `json:"to"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	CustomerEmail  string `json:"customer_email"`
	CustomerName   string `json:"customer_name"`
}
