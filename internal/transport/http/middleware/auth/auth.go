// Package auth resolves the acting user of a request from a signed JWT.
// Tokens are issued by the account service; this package only verifies them.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/corray333/backend-labs/storefront/internal/dal/interfaces/iuserrepo"
	"github.com/corray333/backend-labs/storefront/internal/service/apperr"
	"github.com/corray333/backend-labs/storefront/internal/service/models/user"
	"github.com/corray333/backend-labs/storefront/internal/transport/http/respond"
	"github.com/corray333/backend-labs/storefront/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultCookieName is the cookie the account service stores the token in.
const DefaultCookieName = "jwt"

type ctxKey struct{}

// Claims is the token payload.
type Claims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// Config holds the token verification settings.
type Config struct {
	Secret     []byte
	CookieName string
}

// Middleware authenticates requests.
type Middleware struct {
	cfg   Config
	users iuserrepo.IUserRepository
}

// New creates the authentication middleware.
func New(cfg Config, users iuserrepo.IUserRepository) *Middleware {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	return &Middleware{cfg: cfg, users: users}
}

// NewToken signs a token for userID. The account service issues the same
// tokens; here it serves tooling and tests.
func NewToken(secret []byte, userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Authenticate rejects requests without a valid token for an existing user
// and stores that user in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := m.token(r)
		if raw == "" {
			respond.Error(w, r, apperr.Unauthorized("not authorized, no token"))

			return
		}

		claims, err := m.parse(raw)
		if err != nil {
			logger.FromContext(r.Context()).Warn("Rejected token", "error", err)
			respond.Error(w, r, apperr.Unauthorized("not authorized, token failed"))

			return
		}

		u, err := m.users.GetByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				respond.Error(w, r, apperr.Unauthorized("user not found for this token"))

				return
			}
			respond.Error(w, r, apperr.Storage("failed to load user", err))

			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), *u)))
	})
}

func (m *Middleware) token(r *http.Request) string {
	if c, err := r.Cookie(m.cfg.CookieName); err == nil && c.Value != "" {
		return c.Value
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	return ""
}

func (m *Middleware) parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return m.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// RequireAdmin lets only administrators through. It must run after
// Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			respond.Error(w, r, apperr.Unauthorized("not authorized"))

			return
		}
		if !u.IsAdmin {
			respond.Error(w, r, apperr.Forbidden("not authorized as an admin"))

			return
		}

		next.ServeHTTP(w, r)
	})
}

// WithUser stores the acting user in ctx.
func WithUser(ctx context.Context, u user.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the acting user set by Authenticate.
func UserFromContext(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(user.User)

	return u, ok
}
