package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gcdomain "github.com/dmehra2102/bookwish-storefront/internal/giftcard/domain"
	"github.com/dmehra2102/bookwish-storefront/internal/notification/domain"
	orderdomain "github.com/dmehra2102/bookwish-storefront/internal/order/domain"
)

type outbox struct {
	sent []domain.Mail
	err  error
}

func (o *outbox) Send(ctx context.Context, m domain.Mail) error {
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, m)
	return nil
}

func newTestService() (*Service, *outbox) {
	box := &outbox{}
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), box), box
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestHandleOrderSettledGift(t *testing.T) {
	svc, box := newTestService()
	payload := mustJSON(t, orderdomain.OrderSettled{
		OrderID: "o1", CustomerEmail: "ada@example.com", IsGift: true, RecipientEmail: "kid@example.com",
		Titles: []string{"Matilda"},
	})

	require.NoError(t, svc.Handle(context.Background(), orderdomain.EventOrderSettled, payload))
	require.Len(t, box.sent, 2)
	assert.Equal(t, "ada@example.com", box.sent[0].To)
	assert.Equal(t, "kid@example.com", box.sent[1].To)
}

func TestHandleShipped(t *testing.T) {
	svc, box := newTestService()
	ctx := context.Background()

	ordered := mustJSON(t, orderdomain.OrderStatusChanged{OrderID: "o1", To: orderdomain.StatusOrdered, CustomerEmail: "a@b.c"})
	require.NoError(t, svc.Handle(ctx, orderdomain.EventOrderStatusChanged, ordered))
	assert.Empty(t, box.sent)

	shipped := mustJSON(t, orderdomain.OrderStatusChanged{OrderID: "o1", To: orderdomain.StatusShipped, TrackingNumber: "1Z", CustomerEmail: "a@b.c"})
	require.NoError(t, svc.Handle(ctx, orderdomain.EventOrderStatusChanged, shipped))
	require.Len(t, box.sent, 1)
	assert.Equal(t, "Your order has shipped", box.sent[0].Subject)
}

func TestHandleGiftCardIssued(t *testing.T) {
	svc, box := newTestService()
	payload := mustJSON(t, gcdomain.GiftCardIssued{Code: "CODE", Amount: 1000, RecipientEmail: "kid@example.com"})

	require.NoError(t, svc.Handle(context.Background(), gcdomain.EventGiftCardIssued, payload))
	require.Len(t, box.sent, 1)
	assert.Equal(t, "kid@example.com", box.sent[0].To)
}

func TestHandleUnknownAndMalformed(t *testing.T) {
	svc, box := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Handle(ctx, orderdomain.EventOrderCreated, []byte(`{}`)))
	assert.Empty(t, box.sent)

	err := svc.Handle(ctx, orderdomain.EventOrderSettled, []byte(`{`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestHandleMailerFailure(t *testing.T) {
	svc, box := newTestService()
	box.err = errors.New("smtp down")

	payload := mustJSON(t, gcdomain.GiftCardIssued{Code: "CODE", Amount: 1000, RecipientEmail: "kid@example.com"})
	assert.Error(t, svc.Handle(context.Background(), gcdomain.EventGiftCardIssued, payload))
}
