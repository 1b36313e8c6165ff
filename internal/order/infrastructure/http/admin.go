package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmehra2102/bookwish-storefront/internal/order/application"
	"github.com/dmehra2102/bookwish-storefront/internal/order/domain"
	"github.com/dmehra2102/bookwish-storefront/pkg/auth"
	"github.com/dmehra2102/bookwish-storefront/pkg/httpx"
	"github.com/dmehra2102/bookwish-storefront/pkg/tracing"
)

// AdminRoutes serves order management; callers mount it behind admin auth.
func (h *Handler) AdminRoutes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.listOrders)
	r.Get("/{id}", h.orderDetail)
	r.Patch("/{id}/status", h.updateStatus)
	return r
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r, application.DefaultPageSize, application.MaxPageSize)
	f := domain.ListFilter{Limit: limit, Offset: offset}
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := domain.ParseStatus(s)
		if err != nil {
			httpx.WriteError(w, h.log, err, "Failed to fetch orders")
			return
		}
		f.Status = st
	}

	orders, err := h.service.List(r.Context(), f)
	if err != nil {
		httpx.WriteError(w, h.log, err, "Failed to fetch orders")
		return
	}
	if orders == nil {
		orders = []domain.Summary{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"total":  len(orders),
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) orderDetail(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err, "Failed to fetch order")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"order":         o,
		"items":         o.Items,
		"gifts":         o.Gifts,
		"next_statuses": o.Status.Next(),
	})
}

type statusReq struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	var req statusReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err, "Failed to update order status")
		return
	}
	o, err := h.service.AdvanceStatus(ctx, application.StatusUpdate{
		OrderID:        chi.URLParam(r, "id"),
		Status:         req.Status,
		TrackingNumber: req.TrackingNumber,
		Actor:          auth.Principal(ctx),
		Traceparent:    tracing.Traceparent(ctx),
	})
	if err != nil {
		httpx.WriteError(w, h.log, err, "Failed to update order status")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "order": o})
}
