package domain

import (
	"time"

	orderdomain "github.com/dmehra2102/bookwish-storefront/internal/order/domain"
	"github.com/dmehra2102/bookwish-storefront/pkg/money"
)

// Stats is the dashboard summary. Revenue counts money collected at settlement,
// card and gift card alike.
type Stats struct {
	TotalOrders       int64       `json:"total_orders"`
	Revenue           money.Cents `json:"revenue"`
	CardRevenue       money.Cents `json:"card_revenue"`
	GiftCardRevenue   money.Cents `json:"gift_card_revenue"`
	PendingOrders     int64       `json:"pending_orders"`
	ConfirmedOrders   int64       `json:"confirmed_orders"`
	DeliveredOrders   int64       `json:"delivered_orders"`
	GiftCardsIssued   int64       `json:"gift_cards_issued"`
	GiftCardsRedeemed int64       `json:"gift_cards_redeemed"`
	OutstandingCredit money.Cents `json:"outstanding_gift_card_balance"`

	RecentOrders []orderdomain.Summary `json:"recent_orders"`
}

const RecentOrdersLimit = 10

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
}
