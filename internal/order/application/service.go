package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	gcdomain "github.com/dmehra2102/bookwish-storefront/internal/giftcard/domain"
	"github.com/dmehra2102/bookwish-storefront/internal/order/domain"
	"github.com/dmehra2102/bookwish-storefront/pkg/apperr"
	"github.com/dmehra2102/bookwish-storefront/pkg/money"
)

type Service struct {
	log      *slog.Logger
	repo     OrderRepository
	catalog  Catalog
	cards    GiftCards
	payments Payments
	now      func() time.Time
	newID    func() string
}

func NewService(log *slog.Logger, repo OrderRepository, catalog Catalog, cards GiftCards, payments Payments) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		catalog:  catalog,
		cards:    cards,
		payments: payments,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type QuoteRequest struct {
	Items        []domain.CartItem
	GiftCardCode string
}

type Quote struct {
	Lines []domain.Line
	domain.Breakdown
	GiftCardCode string
}

// Quote prices items from the catalog and applies the gift card if it is valid now.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	ids, err := domain.BookIDs(req.Items)
	if err != nil {
		return Quote{}, err
	}
	books, err := s.catalog.PricesFor(ctx, ids)
	if err != nil {
		return Quote{}, fmt.Errorf("load prices: %w", err)
	}

	var cart domain.Cart
	for _, it := range req.Items {
		b, ok := books[it.BookID]
		if !ok {
			return Quote{}, domain.ErrNotPurchasable
		}
		if err := cart.Add(b, it.Quantity); err != nil {
			return Quote{}, err
		}
	}

	var (
		code    string
		balance money.Cents
	)
	if strings.TrimSpace(req.GiftCardCode) != "" {
		res, err := s.cards.Check(ctx, req.GiftCardCode)
		if err != nil {
			return Quote{}, err
		}
		if !res.Valid {
			return Quote{}, apperr.Validation(res.Reason)
		}
		code, balance = res.Code, res.Balance
	}

	return Quote{
		Lines:        cart.Lines(),
		Breakdown:    domain.Price(cart.Subtotal(), balance),
		GiftCardCode: code,
	}, nil
}

type CreateOrderRequest struct {
	Items           []domain.CartItem
	ShippingAddress domain.ShippingAddress
	Customer        domain.Customer
	Gift            domain.GiftInfo
	Totals          domain.ClientTotals
	Traceparent     string
}

type CreatedOrder struct {
	Order        domain.Order
	ClientSecret string
}

// CreateOrder prices the cart on the server and stores a pending order.
// Balance beyond the gift card gets a card payment intent.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (CreatedOrder, error) {
	if err := req.ShippingAddress.Validate(); err != nil {
		return CreatedOrder{}, err
	}
	if strings.TrimSpace(req.Customer.Email) == "" {
		return CreatedOrder{}, domain.ErrCustomerEmail
	}

	q, err := s.Quote(ctx, QuoteRequest{Items: req.Items, GiftCardCode: req.Gift.GiftCardCode})
	if err != nil {
		return CreatedOrder{}, err
	}
	if !req.Totals.Matches(q.Breakdown) {
		s.log.Warn("client totals rejected", "customer_email", req.Customer.Email, "server_total", q.Total.String())
		return CreatedOrder{}, domain.ErrTotalsMismatch
	}

	orderID := s.newID()
	var clientSecret string
	paymentID := domain.GiftCardPaymentID(q.GiftCardCode)
	// The intent is always opened here so it carries this order's id.
	if q.AmountDue > 0 {
		intent, err := s.payments.CreateIntent(ctx, orderID, q.AmountDue, req.Customer.Email)
		if err != nil {
			return CreatedOrder{}, err
		}
		paymentID, clientSecret = intent.ID, intent.ClientSecret
	}

	o := domain.NewOrder(domain.NewOrderParams{
		ID:              orderID,
		Customer:        req.Customer,
		ShippingAddress: req.ShippingAddress,
		Gift:            req.Gift,
		Lines:           q.Lines,
		Breakdown:       q.Breakdown,
		GiftCardCode:    q.GiftCardCode,
		PaymentID:       paymentID,
		Now:             s.now(),
		NewID:           s.newID,
	})

	payload, err := json.Marshal(domain.OrderCreated{
		OrderID:       o.ID,
		CustomerEmail: o.CustomerEmail,
		Total:         o.Total,
		AmountDue:     o.AmountDue,
		GiftCardCode:  o.GiftCardCode,
		Items:         o.Items,
	})
	if err != nil {
		return CreatedOrder{}, err
	}
	if err := s.repo.CreateWithOutbox(ctx, o, domain.EventOrderCreated, payload, req.Traceparent); err != nil {
		return CreatedOrder{}, fmt.Errorf("save order: %w", err)
	}

	s.log.Info("order created", "order_id", o.ID, "total", o.Total.String(), "amount_due", o.AmountDue.String(),
		"gift_card_code", o.GiftCardCode)
	return CreatedOrder{Order: o, ClientSecret: clientSecret}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Order{}, domain.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Complete settles an order whose remaining balance was paid by card.
// Calling it again after success is a no-op.
func (s *Service) Complete(ctx context.Context, orderID, traceparent string) (domain.Order, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Status != domain.StatusPending {
		return o, nil
	}
	if o.AmountDue > 0 {
		if err := s.payments.Verify(ctx, o.PaymentID, o.ID, o.AmountDue); err != nil {
			return domain.Order{}, err
		}
	}
	return s.repo.Settle(ctx, o.ID, s.settle(o.AmountDue, traceparent))
}

// CompleteGiftCardOnly settles an order the gift card pays in full.
func (s *Service) CompleteGiftCardOnly(ctx context.Context, orderID, code, traceparent string) (domain.Order, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.GiftCardCode == "" {
		return domain.Order{}, domain.ErrNoGiftCard
	}
	if gcdomain.NormalizeCode(code) != o.GiftCardCode {
		return domain.Order{}, domain.ErrGiftCardMismatch
	}
	if o.Status != domain.StatusPending {
		return o, nil
	}
	if o.AmountDue > 0 {
		return domain.Order{}, domain.ErrAmountDue
	}
	return s.repo.Settle(ctx, o.ID, s.settle(0, traceparent))
}

// settle redeems the gift card and confirms the order. The status check runs
// again under the row lock so concurrent calls settle at most once.
func (s *Service) settle(collected money.Cents, traceparent string) SettleFunc {
	return func(o domain.Order, card *gcdomain.GiftCard) (*Settlement, error) {
		if o.Status != domain.StatusPending {
			return nil, nil
		}
		now := s.now()

		var redeemed money.Cents
		if o.GiftCardDiscount > 0 {
			var available money.Cents
			if card != nil {
				available = card.Available(now)
			}
			// Nothing was paid by card, so the order cannot confirm on a card
			// that has been cancelled, expired or drained since the quote.
			if available < o.GiftCardDiscount && collected == 0 {
				s.log.Warn("gift card cannot cover order", "order_id", o.ID, "code", o.GiftCardCode,
					"discount", o.GiftCardDiscount.String(), "available", available.String())
				return nil, domain.ErrGiftCardShort
			}
			if available > 0 {
				redeemed = card.Redeem(o.GiftCardDiscount, now)
			}
			if redeemed < o.GiftCardDiscount {
				s.log.Warn("gift card balance short at settlement", "order_id", o.ID, "code", o.GiftCardCode,
					"discount", o.GiftCardDiscount.String(), "redeemed", redeemed.String())
			}
		}
		o.Confirm(redeemed, collected, now)

		titles := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			titles = append(titles, it.Title)
		}
		payload, err := json.Marshal(domain.OrderSettled{
			OrderID:         o.ID,
			CustomerEmail:   o.CustomerEmail,
			CustomerName:    o.ShippingAddress.FullName(),
			Total:           o.Total,
			AmountCollected: o.AmountCollected,
			GiftCardApplied: o.GiftCardApplied,
			IsGift:          o.IsGift,
			RecipientEmail:  o.RecipientEmail,
			GiftMessage:     o.GiftMessage,
			Titles:          titles,
		})
		if err != nil {
			return nil, err
		}

		st := &Settlement{
			Order:       o,
			Redeemed:    redeemed,
			EventType:   domain.EventOrderSettled,
			Payload:     payload,
			Traceparent: traceparent,
		}
		if redeemed > 0 {
			st.Card = card
		}
		s.log.Info("order settled", "order_id", o.ID, "gift_card_applied", redeemed.String(),
			"amount_collected", collected.String())
		return st, nil
	}
}
