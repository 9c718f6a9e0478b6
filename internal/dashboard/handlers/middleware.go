package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/mrmushfiq/llm0-observability/internal/shared/auth"
	"github.com/mrmushfiq/llm0-observability/internal/shared/models"
)

type userCtxKey struct{}

// UserLoader resolves the user behind a verified token. Loading from the
// store (rather than trusting the claims alone) rejects tokens for deleted
// users.
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// TokenVerifier verifies an access token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type Middleware struct {
	tokens TokenVerifier
	users  UserLoader
}

func NewMiddleware(tokens TokenVerifier, users UserLoader) *Middleware {
	return &Middleware{
		tokens: tokens,
		users:  users,
	}
}

// Auth validates the bearer token and injects the authenticated user into the
// request context. Missing, malformed, expired or orphaned tokens all yield
// 401; role checks are a separate concern (RequireRole).
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := m.tokens.Verify(parts[1])
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid authentication credentials")
			return
		}

		u, err := m.users.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "user not found")
			return
		}

		ctx := context.WithValue(r.Context(), userCtxKey{}, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole restricts access to users whose role is in the allowed set.
// Must run after Auth.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFromContext(r.Context())
			if u == nil {
				respondError(w, http.StatusUnauthorized, "authorization required")
				return
			}
			if !models.Authorize(u.Role, roles...) {
				respondError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware handles CORS for the dashboard frontend
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// UserFromContext returns the authenticated user from the request context
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userCtxKey{}).(*models.User)
	return u
}

// ContextWithUser returns a context carrying the user; used by tests to
// exercise handlers without the middleware.
func ContextWithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}
