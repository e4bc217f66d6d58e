package middleware

import (
	"net/http"

	"github.com/chavepixclub/backend/internal/domain"
	"github.com/chavepixclub/backend/internal/handler"
)

// AdminOnly lets through identities whose email isAdmin accepts.
// Must be used AFTER Auth middleware which sets the identity in context.
func AdminOnly(isAdmin func(email string) bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := handler.CurrentUser(r)
			if !ok || !isAdmin(user.Email) {
				handler.Error(w, domain.ErrForbidden("forbidden: admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
