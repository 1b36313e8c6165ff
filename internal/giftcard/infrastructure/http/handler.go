package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/bookwish-storefront/internal/giftcard/application"
	"github.com/dmehra2102/bookwish-storefront/internal/giftcard/domain"
	"github.com/dmehra2102/bookwish-storefront/pkg/apperr"
	"github.com/dmehra2102/bookwish-storefront/pkg/auth"
	"github.com/dmehra2102/bookwish-storefront/pkg/httpx"
	"github.com/dmehra2102/bookwish-storefront/pkg/money"
	"github.com/dmehra2102/bookwish-storefront/pkg/ratelimit"
	"github.com/dmehra2102/bookwish-storefront/pkg/tracing"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	limiter *ratelimit.Limiter
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, limiter *ratelimit.Limiter) *Handler {
	return &Handler{
		log:     log,
		service: service,
		limiter: limiter,
		tracer:  otel.Tracer("giftcard-http"),
	}
}

// Routes serves the public gift-card endpoints.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.With(h.limiter.Middleware(h.log)).Post("/check", h.check)
	return r
}

// AdminRoutes serves issuance and tracking; callers mount it behind admin auth.
func (h *Handler) AdminRoutes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.issue)
	return r
}

type checkReq struct {
	Code string `json:"code"`
}

type checkResp struct {
	IsValid bool         `json:"isValid"`
	Balance *money.Cents `json:"balance,omitempty"`
	Code    string       `json:"code,omitempty"`
	Message string       `json:"message,omitempty"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CheckGiftCard")
	defer span.End()

	var req checkReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, checkResp{Message: domain.ErrCodeRequired.Msg})
		return
	}

	res, err := h.service.Check(ctx, req.Code)
	switch {
	case apperr.KindOf(err) == apperr.KindValidation:
		httpx.WriteJSON(w, http.StatusBadRequest, checkResp{Message: err.Error()})
		return
	case err != nil:
		h.log.Error("gift card check error", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, checkResp{Message: "Error checking gift card"})
		return
	}

	if !res.Valid {
		httpx.WriteJSON(w, http.StatusOK, checkResp{Message: res.Reason})
		return
	}
	balance := res.Balance
	httpx.WriteJSON(w, http.StatusOK, checkResp{IsValid: true, Balance: &balance, Code: res.Code})
}

type giftCardView struct {
	ID              string        `json:"id"`
	Code            string        `json:"code"`
	OriginalAmount  money.Cents   `json:"original_amount"`
	CurrentBalance  money.Cents   `json:"current_balance"`
	Currency        string        `json:"currency"`
	RecipientEmail  string        `json:"recipient_email"`
	Message         string        `json:"message,omitempty"`
	IssuedBy        string        `json:"issued_by,omitempty"`
	Status          domain.Status `json:"status"`
	ExpiresAt       *time.Time    `json:"expires_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	FullyRedeemedAt *time.Time    `json:"fully_redeemed_at,omitempty"`
}

func toView(g domain.GiftCard) giftCardView {
	return giftCardView{
		ID:              g.ID,
		Code:            g.Code,
		OriginalAmount:  g.OriginalAmount,
		CurrentBalance:  g.CurrentBalance,
		Currency:        g.Currency,
		RecipientEmail:  g.RecipientEmail,
		Message:         g.Message,
		IssuedBy:        g.IssuedBy,
		Status:          g.Status,
		ExpiresAt:       g.ExpiresAt,
		CreatedAt:       g.CreatedAt,
		FullyRedeemedAt: g.FullyRedeemedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r, 50, 200)
	cards, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		httpx.WriteError(w, h.log, err, "Failed to fetch gift cards")
		return
	}
	views := make([]giftCardView, 0, len(cards))
	for _, g := range cards {
		views = append(views, toView(g))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"gift_cards": views, "total": len(views)})
}

type issueReq struct {
	Amount         money.Cents `json:"amount"`
	RecipientEmail string      `json:"recipient_email"`
	Message        string      `json:"message"`
	ExpiresAt      *time.Time  `json:"expires_at"`
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "IssueGiftCard")
	defer span.End()

	var req issueReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err, "Failed to issue gift card")
		return
	}
	g, err := h.service.Issue(ctx, domain.IssueParams{
		Amount:         req.Amount,
		RecipientEmail: req.RecipientEmail,
		Message:        req.Message,
		IssuedBy:       auth.Principal(ctx),
		ExpiresAt:      req.ExpiresAt,
	}, tracing.Traceparent(ctx))
	if err != nil {
		httpx.WriteError(w, h.log, err, "Failed to issue gift card")
		return
	}
	h.log.Info("gift card issued", "code", g.Code, "amount", g.OriginalAmount.String(), "issued_by", g.IssuedBy)
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "gift_card": toView(g)})
}
