package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/bookwish-storefront/internal/wishlist/application"
	"github.com/dmehra2102/bookwish-storefront/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("wishlist-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/{shareCode}", h.getList)
	return r
}

func (h *Handler) getList(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "shareCode")
	ctx, span := h.tracer.Start(r.Context(), "GetSharedList", trace.WithAttributes(attribute.String("share_code", code)))
	defer span.End()

	view, err := h.service.Lookup(ctx, code)
	if err != nil {
		httpx.WriteError(w, h.log, err, "Internal server error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}
