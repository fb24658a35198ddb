package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/corray333/backend-labs/storefront/internal/service/apperr"
	"github.com/corray333/backend-labs/storefront/internal/service/models/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

type fakeUsers map[int64]user.User

func (f fakeUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	if id == 500 {
		return nil, errors.New("connection refused")
	}
	u, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}

	return &u, nil
}

func newMiddleware() *Middleware {
	return New(Config{Secret: secret}, fakeUsers{
		1: {ID: 1, Username: "alice"},
		2: {ID: 2, Username: "admin", IsAdmin: true},
	})
}

func token(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := NewToken(secret, userID, time.Hour)
	require.NoError(t, err)

	return tok
}

func TestAuthenticate(t *testing.T) {
	expired, err := NewToken(secret, 1, -time.Minute)
	require.NoError(t, err)
	foreign, err := NewToken([]byte("other"), 1, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		userID int64
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: token(t, 1)}) }, http.StatusOK, 1},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token(t, 2)) }, http.StatusOK, 2},
		{"no token", func(*http.Request) {}, http.StatusUnauthorized, 0},
		{"expired", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: expired}) }, http.StatusUnauthorized, 0},
		{"wrong secret", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: foreign}) }, http.StatusUnauthorized, 0},
		{"unsigned", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: none}) }, http.StatusUnauthorized, 0},
		{"unknown user", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: token(t, 9)}) }, http.StatusUnauthorized, 0},
		{"lookup failure", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: token(t, 500)}) }, http.StatusInternalServerError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen user.User
			h := newMiddleware().Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = UserFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/orders/myorders", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.userID, seen.ID)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	h := newMiddleware().Authenticate(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	call := func(userID int64) int {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
		if userID > 0 {
			req.AddCookie(&http.Cookie{Name: "jwt", Value: token(t, userID)})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, call(2))
	assert.Equal(t, http.StatusForbidden, call(1))
	assert.Equal(t, http.StatusUnauthorized, call(0))
}
