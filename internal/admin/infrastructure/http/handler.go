package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/bookwish-storefront/internal/admin/application"
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
		tracer:  otel.Tracer("admin-http"),
	}
}

// LoginRoutes is public; StatsRoutes goes behind admin auth.
func (h *Handler) LoginRoutes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.login)
	return r
}

func (h *Handler) StatsRoutes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.stats)
	return r
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AdminLogin")
	defer span.End()

	var req loginReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err, "Login failed")
		return
	}
	s, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		httpx.WriteError(w, h.log, err, "Login failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Stats(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err, "Failed to fetch stats")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}
