package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/chavepixclub/backend/internal/contextkeys"
	"github.com/chavepixclub/backend/internal/domain"
	"github.com/chavepixclub/backend/internal/handler"
)

// TokenVerifier turns a bearer token into an identity.
type TokenVerifier interface {
	Verify(token string) (*domain.Identity, error)
}

// Auth creates a JWT authentication middleware.
func Auth(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				handler.Error(w, domain.ErrUnauthorized("no token provided"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				handler.Error(w, domain.ErrUnauthorized("invalid authorization header"))
				return
			}

			identity, err := verifier.Verify(parts[1])
			if err != nil {
				handler.Error(w, domain.ErrUnauthorized("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), contextkeys.Identity, identity)
			ctx = context.WithValue(ctx, contextkeys.UserID, identity.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextkeys.UserID).(string)
	return id
}
