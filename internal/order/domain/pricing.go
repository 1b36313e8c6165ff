package domain

import (
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/bookwish-storefront/pkg/money"
)

const (
	FreeShippingOver money.Cents = 3500
	FlatShipping     money.Cents = 599
)

var TaxRate = decimal.RequireFromString("0.095")

// Breakdown is the money side of an order. Total is always
// Subtotal+Tax+Shipping; AmountDue is what remains after the gift card.
type Breakdown struct {
	Subtotal         money.Cents `json:"subtotal"`
	Tax              money.Cents `json:"tax"`
	Shipping         money.Cents `json:"shipping"`
	Total            money.Cents `json:"total"`
	GiftCardDiscount money.Cents `json:"gift_card_discount"`
	AmountDue        money.Cents `json:"amount_due"`
}

func ShippingFor(subtotal money.Cents) money.Cents {
	if subtotal > FreeShippingOver {
		return 0
	}
	return FlatShipping
}

// Price computes the breakdown for subtotal with up to giftCardBalance applied.
func Price(subtotal, giftCardBalance money.Cents) Breakdown {
	b := Breakdown{
		Subtotal: subtotal,
		Tax:      subtotal.Percent(TaxRate),
		Shipping: ShippingFor(subtotal),
	}
	b.Total = b.Subtotal + b.Tax + b.Shipping
	b.GiftCardDiscount = money.Max(0, money.Min(giftCardBalance, b.Total))
	b.AmountDue = b.Total - b.GiftCardDiscount
	return b
}

// ClientTotals are the amounts a checkout page computed on its own.
// Nil fields were not sent and are not compared.
type ClientTotals struct {
	Subtotal         *money.Cents
	Tax              *money.Cents
	Shipping         *money.Cents
	Total            *money.Cents
	GiftCardDiscount *money.Cents
}

// Matches reports whether every amount the client sent equals the server's.
func (c ClientTotals) Matches(b Breakdown) bool {
	pairs := []struct {
		sent *money.Cents
		want money.Cents
	}{
		{c.Subtotal, b.Subtotal},
		{c.Tax, b.Tax},
		{c.Shipping, b.Shipping},
		{c.Total, b.Total},
		{c.GiftCardDiscount, b.GiftCardDiscount},
	}
	for _, p := range pairs {
		if p.sent != nil && *p.sent != p.want {
			return false
		}
	}
	return true
}
