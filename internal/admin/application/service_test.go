package application

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmehra2102/bookwish-storefront/internal/admin/domain"
	orderdomain "github.com/dmehra2102/bookwish-storefront/internal/order/domain"
	"github.com/dmehra2102/bookwish-storefront/pkg/auth"
)

type stubStats struct{ st domain.Stats }

func (s stubStats) Stats(ctx context.Context) (domain.Stats, error) { return s.st, nil }

type stubOrders struct{ limit int }

func (o *stubOrders) List(ctx context.Context, f orderdomain.ListFilter) ([]orderdomain.Summary, error) {
	o.limit = f.Limit
	return []orderdomain.Summary{{ID: "o-2", CustomerName: "Ada Lovelace", Status: orderdomain.StatusConfirmed}}, nil
}

func newTestService(t *testing.T) *Service {
	svc, _ := newTestServiceWithOrders(t)
	return svc
}

func newTestServiceWithOrders(t *testing.T) (*Service, *stubOrders) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	a, err := auth.NewAuthenticator(map[string][]byte{"ops": hash}, "0123456789abcdef0123", time.Hour)
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orders := &stubOrders{}
	return NewService(log, a, stubStats{st: domain.Stats{TotalOrders: 3, CardRevenue: 289, GiftCardRevenue: 2500}}, orders), orders
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)

	s, err := svc.Login(context.Background(), " ops ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "ops", s.Username)
	assert.NotEmpty(t, s.Token)
	assert.True(t, s.ExpiresAt.After(time.Now()))

	_, err = svc.Login(context.Background(), "ops", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestStatsSumsRevenue(t *testing.T) {
	st, err := newTestService(t).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.TotalOrders)
	assert.Equal(t, st.CardRevenue+st.GiftCardRevenue, st.Revenue)
}

func TestStatsIncludesRecentOrders(t *testing.T) {
	svc, orders := newTestServiceWithOrders(t)
	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RecentOrdersLimit, orders.limit)
	require.Len(t, st.RecentOrders, 1)
	assert.Equal(t, "o-2", st.RecentOrders[0].ID)
}
