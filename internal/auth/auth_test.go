package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JairHAM/pos-api/internal/auth"
	"github.com/JairHAM/pos-api/internal/memstore"
)

func newService(t *testing.T) (*auth.Service, *auth.Tokens) {
	t.Helper()
	tokens := auth.NewTokens("test-secret", time.Hour)
	return auth.NewService(memstore.New(), tokens, nil), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	svc, tokens := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, auth.RegisterInput{Email: "m@example.com", Username: "maria", Password: "pw123456", FullName: "Maria"})
	require.NoError(t, err)
	require.Equal(t, auth.RoleCashier, u.Role)
	require.NotEqual(t, "pw123456", u.PasswordHash)

	_, err = svc.Register(ctx, auth.RegisterInput{Email: "x@example.com", Username: "maria", Password: "x", FullName: "X"})
	require.ErrorIs(t, err, auth.ErrUserExists)
	_, err = svc.Register(ctx, auth.RegisterInput{Email: "y@example.com", Username: "yan", Password: "x", FullName: "Y", Role: "OWNER"})
	require.ErrorIs(t, err, auth.ErrInvalidRole)
	_, err = svc.Register(ctx, auth.RegisterInput{Username: "z"})
	require.ErrorIs(t, err, auth.ErrMissingFields)

	token, got, err := svc.Login(ctx, "maria", "pw123456")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.UserID)
	require.Equal(t, "maria", claims.Username)
	require.Equal(t, auth.RoleCashier, claims.Role)

	_, _, err = svc.Login(ctx, "maria", "wrong")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody", "pw")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "", "")
	require.ErrorIs(t, err, auth.ErrMissingCredentials)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()
	in := auth.RegisterInput{Email: "admin@pos.local", Username: "admin", Password: "admin123", FullName: "Administrator", Role: "ADMIN"}

	created, err := svc.EnsureUser(ctx, in)
	require.NoError(t, err)
	require.True(t, created)
	created, err = svc.EnsureUser(ctx, in)
	require.NoError(t, err)
	require.False(t, created)
}

func TestTokensRejectTamperedAndExpired(t *testing.T) {
	t.Parallel()
	tokens := auth.NewTokens("secret-a", time.Hour)
	other := auth.NewTokens("secret-b", time.Hour)
	expired := auth.NewTokens("secret-a", -time.Minute)

	u := auth.User{ID: "u1", Username: "ana", Role: auth.RoleAdmin}
	raw, err := other.Issue(u)
	require.NoError(t, err)
	_, err = tokens.Parse(raw)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	raw, err = expired.Issue(u)
	require.NoError(t, err)
	_, err = tokens.Parse(raw)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	tokens := auth.NewTokens("secret", time.Hour)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, found := auth.ClaimsFromContext(r.Context())
		require.True(t, found)
		_, _ = w.Write([]byte(c.Username))
	})
	h := auth.RequireAuth(tokens)(auth.RequireRole(auth.RoleAdmin, auth.RoleManager)(ok))

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	body := func(rec *httptest.ResponseRecorder) map[string]string {
		var m map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
		return m
	}

	rec := do("")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "authentication token required", body(rec)["error"])

	rec = do("Bearer not-a-token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid or expired token", body(rec)["error"])

	waiter, err := tokens.Issue(auth.User{ID: "w1", Username: "wes", Role: auth.RoleWaiter})
	require.NoError(t, err)
	rec = do("Bearer " + waiter)
	require.Equal(t, http.StatusForbidden, rec.Code)

	admin, err := tokens.Issue(auth.User{ID: "a1", Username: "ada", Role: auth.RoleAdmin})
	require.NoError(t, err)
	rec = do("bearer " + admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ada", rec.Body.String())
}
