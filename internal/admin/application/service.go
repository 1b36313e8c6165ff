package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dmehra2102/bookwish-storefront/internal/admin/domain"
	orderdomain "github.com/dmehra2102/bookwish-storefront/internal/order/domain"
	"github.com/dmehra2102/bookwish-storefront/pkg/auth"
)

type StatsRepository interface {
	Stats(ctx context.Context) (domain.Stats, error)
}

type OrderLister interface {
	List(ctx context.Context, f orderdomain.ListFilter) ([]orderdomain.Summary, error)
}

type Service struct {
	log    *slog.Logger
	auth   *auth.Authenticator
	stats  StatsRepository
	orders OrderLister
}

func NewService(log *slog.Logger, authn *auth.Authenticator, stats StatsRepository, orders OrderLister) *Service {
	return &Service{log: log, auth: authn, stats: stats, orders: orders}
}

func (s *Service) Login(ctx context.Context, username, password string) (domain.Session, error) {
	username = strings.TrimSpace(username)
	token, exp, err := s.auth.Login(username, password)
	if err != nil {
		s.log.Warn("admin login rejected", "username", username)
		return domain.Session{}, err
	}
	s.log.Info("admin login", "username", username)
	return domain.Session{Token: token, ExpiresAt: exp, Username: username}, nil
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	st, err := s.stats.Stats(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	st.Revenue = st.CardRevenue + st.GiftCardRevenue

	recent, err := s.orders.List(ctx, orderdomain.ListFilter{Limit: domain.RecentOrdersLimit})
	if err != nil {
		return domain.Stats{}, err
	}
	st.RecentOrders = recent
	if st.RecentOrders == nil {
		st.RecentOrders = []orderdomain.Summary{}
	}
	return st, nil
}
