package domain

import (
	"strings"
	"time"

	"github.com/dmehra2102/bookwish-storefront/pkg/apperr"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusOrdered    Status = "ordered"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

var (
	ErrUnknownStatus     = apperr.Validation("Unknown order status")
	ErrInvalidTransition = apperr.Conflict("Order status transition is not allowed")
	ErrTrackingRequired  = apperr.Validation("Tracking number is required to ship an order")
)

// Only settlement moves an order out of pending into confirmed.
var transitions = map[Status][]Status{
	StatusPending:    {StatusCancelled},
	StatusConfirmed:  {StatusOrdered, StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusOrdered, StatusCancelled},
	StatusOrdered:    {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {StatusRefunded},
	StatusCancelled:  {StatusRefunded},
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusOrdered,
		StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded:
		return st, nil
	}
	return "", ErrUnknownStatus
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next lists the statuses reachable from s.
func (s Status) Next() []Status {
	return append([]Status(nil), transitions[s]...)
}

// Transition moves the order to `to`, stamping the matching timestamp.
// Shipping needs a tracking number, either given now or already stored.
func (o *Order) Transition(to Status, trackingNumber string, now time.Time) error {
	if !CanTransition(o.Status, to) {
		return ErrInvalidTransition
	}
	if tn := strings.TrimSpace(trackingNumber); tn != "" {
		o.TrackingNumber = tn
	}
	if to == StatusShipped && o.TrackingNumber == "" {
		return ErrTrackingRequired
	}

	at := now.UTC()
	switch to {
	case StatusOrdered:
		o.OrderedAt = &at
	case StatusShipped:
		o.ShippedAt = &at
	case StatusDelivered:
		o.DeliveredAt = &at
	case StatusCancelled:
		o.CancelledAt = &at
	}
	o.Status = to
	o.UpdatedAt = at
	return nil
}
