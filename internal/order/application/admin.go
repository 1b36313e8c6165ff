package application

import (
	"context"
	"encoding/json"

	"github.com/dmehra2102/bookwish-storefront/internal/order/domain"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// List returns orders newest first.
func (s *Service) List(ctx context.Context, f domain.ListFilter) ([]domain.Summary, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, f)
}

type StatusUpdate struct {
	OrderID        string
	Status         string
	TrackingNumber string
	Actor          string
	Traceparent    string
}

// AdvanceStatus moves an order along the fulfilment state machine.
func (s *Service) AdvanceStatus(ctx context.Context, u StatusUpdate) (domain.Order, error) {
	to, err := domain.ParseStatus(u.Status)
	if err != nil {
		return domain.Order{}, err
	}
	if _, err := s.Get(ctx, u.OrderID); err != nil {
		return domain.Order{}, err
	}

	o, err := s.repo.UpdateStatus(ctx, u.OrderID, u.Traceparent, func(o *domain.Order) (string, []byte, error) {
		from := o.Status
		if err := o.Transition(to, u.TrackingNumber, s.now()); err != nil {
			return "", nil, err
		}
		payload, err := json.Marshal(domain.OrderStatusChanged{
			OrderID:        o.ID,
			From:           from,
			To:             o.Status,
			TrackingNumber: o.TrackingNumber,
			CustomerEmail:  o.CustomerEmail,
			CustomerName:   o.ShippingAddress.FullName(),
		})
		return domain.EventOrderStatusChanged, payload, err
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.log.Info("order status updated", "order_id", o.ID, "status", o.Status, "actor", u.Actor)
	return o, nil
}
