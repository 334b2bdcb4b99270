package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
)

type contextKey string

const userIDKey contextKey = "user_id"

// bearerAuth resolves an optional Authorization header. No header means an
// anonymous request, which is fine on the cart routes; a header that is
// present but invalid is rejected so an expired credential never silently
// degrades to guest access.
func bearerAuth(jwt *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			if token == header {
				respondWithError(w, http.StatusUnauthorized, "malformed authorization header")
				return
			}

			userID, err := jwt.Verify(token)
			if err != nil {
				log.Debug().Err(err).Msg("handler: bearer token rejected")
				respondWithError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// userIDFromContext returns the authenticated user id, or "" for guests.
func userIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}
