package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/bookwish-storefront/internal/order/application"
	"github.com/dmehra2102/bookwish-storefront/internal/order/domain"
	"github.com/dmehra2102/bookwish-storefront/pkg/httpx"
	"github.com/dmehra2102/bookwish-storefront/pkg/idempotency"
	"github.com/dmehra2102/bookwish-storefront/pkg/money"
	"github.com/dmehra2102/bookwish-storefront/pkg/tracing"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	idem    *idempotency.Store
	tracer  trace.Tracer
}

// NewHandler builds the order endpoints. A nil idem store disables Idempotency-Key replay.
func NewHandler(log *slog.Logger, service *application.Service, idem *idempotency.Store) *Handler {
	return &Handler{
		log:     log,
		service: service,
		idem:    idem,
		tracer:  otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	create := http.Handler(http.HandlerFunc(h.createOrder))
	if h.idem != nil {
		create = idempotency.Middleware(h.log, h.idem)(create)
	}
	r.Method(http.MethodPost, "/", create)
	r.Get("/{id}", h.getOrder)
	r.Post("/complete", h.complete)
	r.Post("/confirm-gift-card-only", h.confirmGiftCardOnly)
	return r
}

func (h *Handler) CartRoutes() http.Handler {
	r := chi.NewRouter()
	r.Post("/quote", h.quote)
	return r
}

type itemReq struct {
	BookID string `json:"book_id"`
	Book   *struct {
		ID string `json:"id"`
	} `json:"book"`
	Quantity int `json:"quantity"`
}

func toCartItems(in []itemReq) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(in))
	for _, it := range in {
		id := it.BookID
		if id == "" && it.Book != nil {
			id = it.Book.ID
		}
		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}
		out = append(out, domain.CartItem{BookID: id, Quantity: qty})
	}
	return out
}

type quoteReq struct {
	Items        []itemReq `json:"items"`
	GiftCardCode string    `json:"gift_card_code"`
}

type quoteResp struct {
	Lines []domain.Line `json:"lines"`
	domain.Breakdown
	GiftCardCode string `json:"gift_card_code,omitempty"`
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "QuoteCart")
	defer span.End()

	var req quoteReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err, "Failed to price cart")
		return
	}
	q, err := h.service.Quote(ctx, application.QuoteRequest{Items: toCartItems(req.Items), GiftCardCode: req.GiftCardCode})
	if err != nil {
		httpx.WriteError(w, h.log, err, "Failed to price cart")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, quoteResp{Lines: q.Lines, Breakdown: q.Breakdown, GiftCardCode: q.GiftCardCode})
}

type createOrderReq struct {
	Items           []itemReq              `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	Customer        domain.Customer        `json:"customer"`
	PaymentInfo     struct {
		CustomerID string `json:"customer_id"`
		Email      string `json:"email"`
	} `json:"paymentInfo"`
	GiftInfo struct {
		domain.GiftInfo
		GiftCardDiscount *money.Cents `json:"giftCardDiscount"`
	} `json:"giftInfo"`
	Subtotal *money.Cents `json:"subtotal"`
	Tax      *money.Cents `json:"tax"`
	Shipping *money.Cents `json:"shipping"`
	Total    *money.Cents `json:"total"`
}

type createOrderResp struct {
	Success      bool         `json:"success"`
	OrderID      string       `json:"orderId"`
	Order        domain.Order `json:"order"`
	ClientSecret string       `json:"clientSecret,omitempty"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err, "Failed to create order")
		return
	}

	customer := req.Customer
	if customer.ID == "" {
		customer.ID = req.PaymentInfo.CustomerID
	}
	if customer.Email == "" {
		customer.Email = req.PaymentInfo.Email
	}

	created, err := h.service.CreateOrder(ctx, application.CreateOrderRequest{
		Items:           toCartItems(req.Items),
		ShippingAddress: req.ShippingAddress,
		Customer:        customer,
		Gift:            req.GiftInfo.GiftInfo,
		Totals: domain.ClientTotals{
			Subtotal:         req.Subtotal,
			Tax:              req.Tax,
			Shipping:         req.Shipping,
			Total:            req.Total,
			GiftCardDiscount: req.GiftInfo.GiftCardDiscount,
		},
		Traceparent: tracing.Traceparent(ctx),
	})
	if err != nil {
		httpx.WriteError(w, h.log, err, "Failed to create order")
		return
	}
	span.SetAttributes(attribute.String("order_id", created.Order.ID))

	httpx.WriteJSON(w, http.StatusCreated, createOrderResp{
		Success:      true,
		OrderID:      created.Order.ID,
		Order:        created.Order,
		ClientSecret: created.ClientSecret,
	})
}

type orderStatusResp struct {
	ID              string        `json:"id"`
	Status          domain.Status `json:"status"`
	Total           money.Cents   `json:"total"`
	AmountDue       money.Cents   `json:"amount_due"`
	AmountCollected money.Cents   `json:"amount_collected"`
	GiftCardApplied money.Cents   `json:"gift_card_applied"`
	TrackingNumber  string        `json:"tracking_number,omitempty"`
	Items           []domain.Item `json:"items"`
}

// getOrder is the public order status view; it leaves out address and contact data.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err, "Failed to fetch order")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderStatusResp{
		ID:              o.ID,
		Status:          o.Status,
		Total:           o.Total,
		AmountDue:       o.AmountDue,
		AmountCollected: o.AmountCollected,
		GiftCardApplied: o.GiftCardApplied,
		TrackingNumber:  o.TrackingNumber,
		Items:           o.Items,
	})
}

type completeReq struct {
	OrderID      string `json:"orderId"`
	GiftCardCode string `json:"giftCardCode"`
}

type completeResp struct {
	Success bool          `json:"success"`
	OrderID string        `json:"orderId"`
	Status  domain.Status `json:"status"`
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompleteOrder")
	defer span.End()

	var req completeReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err, "Failed to complete order")
		return
	}
	o, err := h.service.Complete(ctx, req.OrderID, tracing.Traceparent(ctx))
	if err != nil {
		httpx.WriteError(w, h.log, err, "Failed to complete order")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, completeResp{Success: true, OrderID: o.ID, Status: o.Status})
}

func (h *Handler) confirmGiftCardOnly(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ConfirmGiftCardOnly")
	defer span.End()

	var req completeReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err, "Failed to confirm order")
		return
	}
	o, err := h.service.CompleteGiftCardOnly(ctx, req.OrderID, req.GiftCardCode, tracing.Traceparent(ctx))
	if err != nil {
		httpx.WriteError(w, h.log, err, "Failed to confirm order")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, completeResp{Success: true, OrderID: o.ID, Status: o.Status})
}
