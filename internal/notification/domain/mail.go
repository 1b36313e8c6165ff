package domain

import (
	"fmt"
	"html/template"
	"strings"

	gcdomain "github.com/dmehra2102/bookwish-storefront/internal/giftcard/domain"
	orderdomain "github.com/dmehra2102/bookwish-storefront/internal/order/domain"
)

type Mail struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

func htmlFrom(text string) string {
	return "<pre>" + template.HTMLEscapeString(text) + "</pre>"
}

func newMail(to, name, subject, text string) Mail {
	return Mail{To: to, ToName: name, Subject: subject, Text: text, HTML: htmlFrom(text)}
}

// Receipt confirms a settled order to the buyer.
func Receipt(e orderdomain.OrderSettled) Mail {
	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for your order %s.\n\n", e.OrderID)
	for _, t := range e.Titles {
		fmt.Fprintf(&b, "  - %s\n", t)
	}
	fmt.Fprintf(&b, "\nOrder total: %s\n", e.Total)
	if e.GiftCardApplied > 0 {
		fmt.Fprintf(&b, "Paid by gift card: %s\n", e.GiftCardApplied)
	}
	if e.AmountCollected > 0 {
		fmt.Fprintf(&b, "Paid by card: %s\n", e.AmountCollected)
	}
	return newMail(e.CustomerEmail, e.CustomerName, "Your order is confirmed", b.String())
}

// GiftNotice tells the recipient books are on their way. Nil when the order is not a gift.
func GiftNotice(e orderdomain.OrderSettled) *Mail {
	if !e.IsGift || strings.TrimSpace(e.RecipientEmail) == "" {
		return nil
	}
	var b strings.Builder
	from := e.CustomerName
	if from == "" {
		from = "Someone"
	}
	fmt.Fprintf(&b, "%s sent you a gift from your wishlist:\n\n", from)
	for _, t := range e.Titles {
		fmt.Fprintf(&b, "  - %s\n", t)
	}
	if e.GiftMessage != "" {
		fmt.Fprintf(&b, "\nTheir message:\n%s\n", e.GiftMessage)
	}
	m := newMail(e.RecipientEmail, "", "You received a gift!", b.String())
	return &m
}

// Shipped is sent when an order leaves with a tracking number. Nil for other transitions.
func Shipped(e orderdomain.OrderStatusChanged) *Mail {
	if e.To != orderdomain.StatusShipped || e.CustomerEmail == "" {
		return nil
	}
	text := fmt.Sprintf("Your order %s has shipped.\n\nTracking number: %s\n", e.OrderID, e.TrackingNumber)
	m := newMail(e.CustomerEmail, e.CustomerName, "Your order has shipped", text)
	return &m
}

func GiftCard(e gcdomain.GiftCardIssued) Mail {
	var b strings.Builder
	fmt.Fprintf(&b, "You have received a %s gift card.\n\nCode: %s\n", e.Amount, e.Code)
	if e.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", e.Message)
	}
	return newMail(e.RecipientEmail, "", "Your gift card", b.String())
}
