package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"gridbase/internal/domain"
)

// AdminClaim is the boolean token claim that marks an administrator.
const AdminClaim = "admin"

// Authenticate requires a valid bearer token on every request and stores
// the resulting principal in the request context.
func Authenticate(v TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="gridbase"`)
				writeError(w, http.StatusUnauthorized, "unauthorized: bearer token required")
				return
			}
			claims, err := v.Validate(r.Context(), token)
			if err != nil || claims.Subject == "" {
				logger.DebugContext(r.Context(), "token rejected",
					"request_id", RequestIDFromContext(r.Context()),
					"error", err)
				w.Header().Set("WWW-Authenticate", `Bearer realm="gridbase", error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, "unauthorized: invalid token")
				return
			}

			ctx := domain.WithPrincipal(r.Context(), domain.ContextPrincipal{
				Subject: claims.Subject,
				Issuer:  claims.Issuer,
				IsAdmin: claims.Bool(AdminClaim),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
