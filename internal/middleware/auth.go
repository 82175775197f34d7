package middleware

import (
	"context"
	"net/http"

	"studio_site/internal/clients/backend"
	"studio_site/internal/session"
)

type SessionLookup interface {
	Lookup(email string) (session.Session, bool)
}

type AdminMiddleware struct {
	sessions SessionLookup
}

func NewAdminMiddleware(sessions SessionLookup) *AdminMiddleware {
	return &AdminMiddleware{sessions: sessions}
}

type contextKey string

const (
	AdminEmailKey = contextKey("adminEmail")
	IsAdminKey    = contextKey("isAdmin")
)

func AdminEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(AdminEmailKey).(string)
	return email, ok && email != ""
}

func IsAdmin(ctx context.Context) bool {
	ok, _ := ctx.Value(IsAdminKey).(bool)
	return ok
}

// Identify marks the request as admin when the header names an active
// session. Anonymous requests pass through untouched.
func (m *AdminMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := r.Header.Get(backend.HeaderAdminEmail)
		if email == "" {
			next.ServeHTTP(w, r)
			return
		}

		s, ok := m.sessions.Lookup(email)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), AdminEmailKey, s.Email)
		ctx = context.WithValue(ctx, IsAdminKey, true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests that Identify did not mark as admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
