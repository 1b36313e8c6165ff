package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmehra2102/bookwish-storefront/pkg/httpx"
)

// RequireAdmin rejects requests without a valid "Authorization: Bearer" token.
func (a *Authenticator) RequireAdmin(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				httpx.WriteError(w, log, ErrUnauthorized, "Unauthorized")
				return
			}
			name, err := a.Verify(token)
			if err != nil {
				httpx.WriteError(w, log, err, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), name)))
		})
	}
}
