package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sourcescope/internal/userstore"
)

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	store, err := userstore.New(filepath.Join(t.TempDir(), "users.json"), zap.NewNop())
	require.NoError(t, err)
	return New(store, Config{Secret: "test-secret", TTL: time.Minute}, zap.NewNop(), opts...)
}

func TestRegister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t)

	user, err := svc.Register(ctx, " bob ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
	assert.NotEqual(t, "hunter22", user.HashedPassword)
	assert.True(t, strings.HasPrefix(user.HashedPassword, "$2"))

	_, err = svc.Register(ctx, "bob", "another1")
	require.ErrorIs(t, err, userstore.ErrUserExists)

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "ab", "hunter22"},
		{"long username", strings.Repeat("u", MaxUsernameLength+1), "hunter22"},
		{"short password", "carol", "12345"},
	}
	for _, tc := range cases {
		_, err := svc.Register(ctx, tc.username, tc.password)
		assert.ErrorIs(t, err, ErrInvalidInput, tc.name)
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.Register(ctx, "bob", "hunter22")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "bob", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)

	_, err = svc.Authenticate(ctx, "bob", "wrong-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "hunter22")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	svc := newService(t)

	token, err := svc.IssueToken("bob")
	require.NoError(t, err)
	username, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "bob", username)
}

func TestVerifyToken_Rejects(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	svc := newService(t, WithClock(clock))
	token, err := svc.IssueToken("bob")
	require.NoError(t, err)

	later := newService(t, WithClock(func() time.Time { return now.Add(2 * time.Minute) }))
	later.secret = svc.secret
	_, err = later.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	other := New(nil, Config{Secret: "other-secret"}, nil, WithClock(clock))
	_, err = other.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	_, err = svc.VerifyToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken, "garbage")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "bob",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.VerifyToken(none)
	assert.ErrorIs(t, err, ErrInvalidToken, "alg none")

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}).SignedString(svc.secret)
	require.NoError(t, err)
	_, err = svc.VerifyToken(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken, "no subject")
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	svc := newService(t)
	token, err := svc.IssueToken("bob")
	require.NoError(t, err)

	var seen string
	h := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UsernameFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusForbidden},
		{"wrong scheme", "Basic " + token, http.StatusForbidden},
		{"bad token", "Bearer nope", http.StatusForbidden},
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		seen = ""
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profile/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, tc.name)
		if tc.status == http.StatusOK {
			assert.Equal(t, "bob", seen, tc.name)
		}
	}
}

func TestUsernameFrom_Empty(t *testing.T) {
	t.Parallel()

	_, ok := UsernameFrom(context.Background())
	assert.False(t, ok)
	name, ok := UsernameFrom(WithUsername(context.Background(), "bob"))
	assert.True(t, ok)
	assert.Equal(t, "bob", name)
}
