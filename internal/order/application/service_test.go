package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gcdomain "github.com/dmehra2102/bookwish-storefront/internal/giftcard/domain"
	"github.com/dmehra2102/bookwish-storefront/internal/order/domain"
	paydomain "github.com/dmehra2102/bookwish-storefront/internal/payment/domain"
	"github.com/dmehra2102/bookwish-storefront/pkg/money"
)

const (
	bookA = "0b6f2d9e-1111-4a4a-9c9c-000000000001"
	bookB = "0b6f2d9e-1111-4a4a-9c9c-000000000002"
)

var fixedNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

// memStore plays the database: one lock serializes settlements like row locks do.
type memStore struct {
	mu          sync.Mutex
	orders      map[string]domain.Order
	cards       map[string]gcdomain.GiftCard
	redemptions map[string]money.Cents
	events      []string
}

func newMemStore() *memStore {
	return &memStore{
		orders:      map[string]domain.Order{},
		cards:       map[string]gcdomain.GiftCard{},
		redemptions: map[string]money.Cents{},
	}
}

func (m *memStore) CreateWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	m.events = append(m.events, eventType)
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (m *memStore) Settle(ctx context.Context, id string, fn SettleFunc) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	var card *gcdomain.GiftCard
	if c, ok := m.cards[o.GiftCardCode]; ok {
		card = &c
	}
	st, err := fn(o, card)
	if err != nil || st == nil {
		return o, err
	}
	if st.Card != nil {
		if _, dup := m.redemptions[id]; dup {
			return domain.Order{}, errors.New("duplicate redemption")
		}
		m.cards[st.Card.Code] = *st.Card
		m.redemptions[id] = st.Redeemed
	}
	m.orders[id] = st.Order
	m.events = append(m.events, st.EventType)
	return st.Order, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, id, traceparent string, fn StatusFunc) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	eventType, _, err := fn(&o)
	if err != nil {
		return domain.Order{}, err
	}
	m.orders[id] = o
	m.events = append(m.events, eventType)
	return o, nil
}

func (m *memStore) List(ctx context.Context, f domain.ListFilter) ([]domain.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Summary
	for _, o := range m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, domain.Summary{ID: o.ID, Status: o.Status, TotalAmount: o.Total})
	}
	return out, nil
}

// Check mirrors the gift card validator against the same store.
func (m *memStore) Check(ctx context.Context, code string) (gcdomain.CheckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code = gcdomain.NormalizeCode(code)
	if code == "" {
		return gcdomain.CheckResult{}, gcdomain.ErrCodeRequired
	}
	c, ok := m.cards[code]
	if !ok {
		return gcdomain.Check(nil, fixedNow), nil
	}
	return gcdomain.Check(&c, fixedNow), nil
}

type staticCatalog map[string]domain.CatalogBook

func (c staticCatalog) PricesFor(ctx context.Context, ids []string) (map[string]domain.CatalogBook, error) {
	out := map[string]domain.CatalogBook{}
	for _, id := range ids {
		if b, ok := c[id]; ok {
			out[id] = b
		}
	}
	return out, nil
}

type fakePayments struct {
	mu        sync.Mutex
	created   map[string]money.Cents
	succeeded map[string]bool
}

func (p *fakePayments) CreateIntent(ctx context.Context, orderID string, amount money.Cents, email string) (paydomain.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := "pi_" + orderID
	p.created[id] = amount
	return paydomain.Intent{ID: id, OrderID: orderID, Amount: amount, ClientSecret: id + "_secret"}, nil
}

func (p *fakePayments) Verify(ctx context.Context, intentID, orderID string, expected money.Cents) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.succeeded[intentID] || p.created[intentID] < expected {
		return paydomain.ErrNotConfirmed
	}
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type harness struct {
	svc      *Service
	store    *memStore
	payments *fakePayments
}

func newHarness(cards ...gcdomain.GiftCard) harness {
	store := newMemStore()
	for _, c := range cards {
		store.cards[c.Code] = c
	}
	payments := &fakePayments{created: map[string]money.Cents{}, succeeded: map[string]bool{}}
	catalog := staticCatalog{
		bookA: {ID: bookA, OwnerID: "owner-1", Title: "Piranesi", Author: "Susanna Clarke", Price: money.MustDollars("20.00")},
		bookB: {ID: bookB, OwnerID: "owner-1", Title: "Unpriced"},
	}
	svc := NewService(discard(), store, catalog, store, payments)
	svc.now = func() time.Time { return fixedNow }
	return harness{svc: svc, store: store, payments: payments}
}

func card(code, balance string) gcdomain.GiftCard {
	amount := money.MustDollars(balance)
	return gcdomain.GiftCard{ID: code, Code: code, OriginalAmount: amount, CurrentBalance: amount, Status: gcdomain.StatusActive}
}

var address = domain.ShippingAddress{
	FirstName: "Ada", LastName: "Lovelace", AddressLine1: "12 St James Sq", City: "London",
	State: "LDN", ZipCode: "SW1Y", Country: "GB",
}

func orderRequest(code string) CreateOrderRequest {
	return CreateOrderRequest{
		Items:           []domain.CartItem{{BookID: bookA, Quantity: 1}},
		ShippingAddress: address,
		Customer:        domain.Customer{Email: "ada@example.com"},
		Gift:            domain.GiftInfo{IsGift: true, Message: "Happy reading", RecipientEmail: "friend@example.com", GiftCardCode: code},
	}
}

func TestScenarioPartialGiftCardThenCard(t *testing.T) {
	h := newHarness(card("SAVE10", "25.00"))
	ctx := context.Background()

	created, err := h.svc.CreateOrder(ctx, orderRequest("save10"))
	require.NoError(t, err)
	o := created.Order
	assert.Equal(t, money.MustDollars("27.89"), o.Total)
	assert.Equal(t, money.MustDollars("25.00"), o.GiftCardDiscount)
	assert.Equal(t, money.MustDollars("2.89"), o.AmountDue)
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, "pi_"+o.ID, o.PaymentID)
	assert.Equal(t, "pi_"+o.ID+"_secret", created.ClientSecret)
	require.Len(t, o.Gifts, 1)
	assert.Equal(t, o.ID, o.Gifts[0].OrderID)
	assert.Equal(t, "owner-1", o.Gifts[0].ToUserID)

	_, err = h.svc.Complete(ctx, o.ID, "")
	assert.ErrorIs(t, err, paydomain.ErrNotConfirmed)
	assert.Equal(t, money.MustDollars("25.00"), h.store.cards["SAVE10"].CurrentBalance)

	h.payments.succeeded[o.PaymentID] = true
	settled, err := h.svc.Complete(ctx, o.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, settled.Status)
	assert.Equal(t, money.MustDollars("2.89"), settled.AmountCollected)
	assert.Equal(t, money.MustDollars("25.00"), settled.GiftCardApplied)
	require.NotNil(t, settled.ConfirmedAt)

	gc := h.store.cards["SAVE10"]
	assert.Equal(t, money.Cents(0), gc.CurrentBalance)
	assert.Equal(t, gcdomain.StatusRedeemed, gc.Status)

	again, err := h.svc.Complete(ctx, o.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, again.Status)
	assert.Equal(t, money.Cents(0), h.store.cards["SAVE10"].CurrentBalance)
	assert.Len(t, h.store.redemptions, 1)
	assert.Equal(t, []string{domain.EventOrderCreated, domain.EventOrderSettled}, h.store.events)
}

func TestScenarioGiftCardCoversAll(t *testing.T) {
	h := newHarness(card("FULL50", "50.00"))
	ctx := context.Background()
	h.store.orders["11111111-2222-4333-8444-555555555555"] = domain.Order{
		ID:           "11111111-2222-4333-8444-555555555555",
		Breakdown:    domain.Breakdown{Subtotal: 2300, Tax: 218, Shipping: 482, Total: 3000, GiftCardDiscount: 3000},
		GiftCardCode: "FULL50",
		Status:       domain.StatusPending,
		PaymentID:    domain.GiftCardPaymentID("FULL50"),
	}

	settled, err := h.svc.CompleteGiftCardOnly(ctx, "11111111-2222-4333-8444-555555555555", "full50", "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, settled.Status)
	assert.Equal(t, money.MustDollars("30.00"), settled.GiftCardApplied)
	assert.Equal(t, money.Cents(0), settled.AmountCollected)

	gc := h.store.cards["FULL50"]
	assert.Equal(t, money.MustDollars("20.00"), gc.CurrentBalance)
	assert.Equal(t, gcdomain.StatusActive, gc.Status)

	_, err = h.svc.CompleteGiftCardOnly(ctx, "11111111-2222-4333-8444-555555555555", "FULL50", "")
	require.NoError(t, err)
	assert.Equal(t, money.MustDollars("20.00"), h.store.cards["FULL50"].CurrentBalance)
}

func TestCreateOrderGiftCardOnly(t *testing.T) {
	h := newHarness(card("FULL50", "50.00"))

	created, err := h.svc.CreateOrder(context.Background(), orderRequest("FULL50"))
	require.NoError(t, err)
	assert.Equal(t, money.Cents(0), created.Order.AmountDue)
	assert.Equal(t, "gift_card_FULL50", created.Order.PaymentID)
	assert.Empty(t, created.ClientSecret)
	assert.Empty(t, h.payments.created)
}

func TestCreateOrderRejectsTamperedTotals(t *testing.T) {
	h := newHarness()
	req := orderRequest("")
	cheap := money.MustDollars("1.00")
	req.Totals = domain.ClientTotals{Total: &cheap}

	_, err := h.svc.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrTotalsMismatch)
	assert.Empty(t, h.store.orders)

	right := money.MustDollars("27.89")
	req.Totals = domain.ClientTotals{Total: &right}
	_, err = h.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
}

func TestCreateOrderValidation(t *testing.T) {
	h := newHarness(func() gcdomain.GiftCard {
		c := card("EXPIRED1", "10.00")
		past := fixedNow.Add(-24 * time.Hour)
		c.ExpiresAt = &past
		return c
	}())

	tests := []struct {
		name   string
		mutate func(*CreateOrderRequest)
		want   string
	}{
		{"no items", func(r *CreateOrderRequest) { r.Items = nil }, "Order must contain at least one item"},
		{"no email", func(r *CreateOrderRequest) { r.Customer.Email = "" }, "Customer email is required"},
		{"no zip", func(r *CreateOrderRequest) { r.ShippingAddress.ZipCode = "" }, "Shipping zip code is required"},
		{"unpriced", func(r *CreateOrderRequest) { r.Items = []domain.CartItem{{BookID: bookB, Quantity: 1}} }, "Book is not available for purchase"},
		{"duplicate", func(r *CreateOrderRequest) { r.Items = append(r.Items, r.Items[0]) }, "Already in cart"},
		{"expired card", func(r *CreateOrderRequest) { r.Gift.GiftCardCode = "expired1" }, "Gift card has expired"},
		{"unknown card", func(r *CreateOrderRequest) { r.Gift.GiftCardCode = "NOPE" }, "Gift card not found or inactive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := orderRequest("")
			tt.mutate(&req)
			_, err := h.svc.CreateOrder(context.Background(), req)
			assert.EqualError(t, err, tt.want)
		})
	}
	assert.Empty(t, h.store.orders)
}

func TestQuote(t *testing.T) {
	h := newHarness(card("SAVE10", "25.00"))

	q, err := h.svc.Quote(context.Background(), QuoteRequest{
		Items:        []domain.CartItem{{BookID: bookA, Quantity: 2}},
		GiftCardCode: "save10",
	})
	require.NoError(t, err)
	assert.Equal(t, money.MustDollars("40.00"), q.Subtotal)
	assert.Equal(t, money.Cents(0), q.Shipping)
	assert.Equal(t, money.MustDollars("3.80"), q.Tax)
	assert.Equal(t, money.MustDollars("43.80"), q.Total)
	assert.Equal(t, money.MustDollars("18.80"), q.AmountDue)
	assert.Equal(t, "SAVE10", q.GiftCardCode)
}

func TestQuoteRejectsOversizedQuantity(t *testing.T) {
	h := newHarness()

	_, err := h.svc.Quote(context.Background(), QuoteRequest{
		Items: []domain.CartItem{{BookID: bookA, Quantity: 4_611_686_018_427_388}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestCompleteGiftCardOnlyGuards(t *testing.T) {
	h := newHarness(card("SAVE10", "25.00"))
	ctx := context.Background()
	created, err := h.svc.CreateOrder(ctx, orderRequest("SAVE10"))
	require.NoError(t, err)
	id := created.Order.ID

	_, err = h.svc.CompleteGiftCardOnly(ctx, id, "OTHER", "")
	assert.ErrorIs(t, err, domain.ErrGiftCardMismatch)

	_, err = h.svc.CompleteGiftCardOnly(ctx, id, "save10", "")
	assert.ErrorIs(t, err, domain.ErrAmountDue)
	assert.Equal(t, domain.StatusPending, h.store.orders[id].Status)

	_, err = h.svc.Complete(ctx, "not-a-uuid", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentSettlementsShareOneCard(t *testing.T) {
	h := newHarness(card("SHARED", "30.00"))
	ctx := context.Background()

	// Each order is quoted against the full $30 balance, so each is fully covered.
	var ids []string
	for i := 0; i < 2; i++ {
		created, err := h.svc.CreateOrder(ctx, orderRequest("SHARED"))
		require.NoError(t, err)
		require.Equal(t, money.Cents(0), created.Order.AmountDue)
		ids = append(ids, created.Order.ID)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		short int
	)
	for _, id := range ids {
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := h.svc.Complete(ctx, id, "")
				if errors.Is(err, domain.ErrGiftCardShort) {
					mu.Lock()
					short++
					mu.Unlock()
					return
				}
				assert.NoError(t, err)
			}(id)
		}
	}
	wg.Wait()

	assert.Equal(t, 3, short)
	require.Len(t, h.store.redemptions, 1)
	for _, r := range h.store.redemptions {
		assert.Equal(t, money.MustDollars("27.89"), r)
	}
	gc := h.store.cards["SHARED"]
	assert.Equal(t, money.MustDollars("2.11"), gc.CurrentBalance)
	assert.Equal(t, gcdomain.StatusActive, gc.Status)

	confirmed := 0
	for _, id := range ids {
		if h.store.orders[id].Status == domain.StatusConfirmed {
			confirmed++
		}
	}
	assert.Equal(t, 1, confirmed)
}

func TestSettlementRejectsCancelledCard(t *testing.T) {
	h := newHarness(card("FULL50", "50.00"))
	ctx := context.Background()
	created, err := h.svc.CreateOrder(ctx, orderRequest("FULL50"))
	require.NoError(t, err)

	gc := h.store.cards["FULL50"]
	gc.Status = gcdomain.StatusCancelled
	h.store.cards["FULL50"] = gc

	_, err = h.svc.CompleteGiftCardOnly(ctx, created.Order.ID, "FULL50", "")
	assert.ErrorIs(t, err, domain.ErrGiftCardShort)
	assert.Equal(t, domain.StatusPending, h.store.orders[created.Order.ID].Status)
	assert.Equal(t, money.MustDollars("50.00"), h.store.cards["FULL50"].CurrentBalance)
	assert.Empty(t, h.store.redemptions)
}

func TestCardPaidSettlementSkipsExpiredCard(t *testing.T) {
	h := newHarness(card("SAVE10", "25.00"))
	ctx := context.Background()
	created, err := h.svc.CreateOrder(ctx, orderRequest("SAVE10"))
	require.NoError(t, err)
	h.payments.succeeded[created.Order.PaymentID] = true

	gc := h.store.cards["SAVE10"]
	past := fixedNow.Add(-time.Minute)
	gc.ExpiresAt = &past
	h.store.cards["SAVE10"] = gc

	o, err := h.svc.Complete(ctx, created.Order.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, o.Status)
	assert.Equal(t, money.Cents(0), o.GiftCardApplied)
	assert.Equal(t, money.MustDollars("2.89"), o.AmountCollected)
	assert.Equal(t, money.MustDollars("25.00"), h.store.cards["SAVE10"].CurrentBalance)
}
