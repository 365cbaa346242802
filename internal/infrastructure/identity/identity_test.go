package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsletterEngine/internal/domain"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestJWTVerifierCurrentUser(t *testing.T) {
	t.Parallel()

	verifier := NewJWTVerifier(testSecret, "authenticated")
	valid := jwt.RegisteredClaims{
		Subject:   "user-123",
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	userID, err := verifier.CurrentUser(context.Background(), signToken(t, jwt.SigningMethodHS256, []byte(testSecret), valid))
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"wrong secret": signToken(t, jwt.SigningMethodHS256, []byte("another-secret-of-sufficient-length!!"), valid),
		"expired": signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject: "user-123", Audience: jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}),
		"wrong audience": signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject: "user-123", Audience: jwt.ClaimStrings{"anon"},
		}),
		"no subject": signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Audience: jwt.ClaimStrings{"authenticated"},
		}),
		"wrong method": signToken(t, jwt.SigningMethodHS512, []byte(testSecret), valid),
	}
	for name, token := range tests {
		_, err := verifier.CurrentUser(context.Background(), token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized, name)
	}
}

func TestRemoteVerifierCurrentUser(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"user-9","email":"a@b.c"}`))
	}))
	defer server.Close()

	verifier := NewRemoteVerifier(server.URL+"/", "anon", server.Client())

	userID, err := verifier.CurrentUser(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "user-9", userID)

	_, err = verifier.CurrentUser(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

type stubIdentity struct {
	user string
	err  error
}

func (s stubIdentity) CurrentUser(context.Context, string) (string, error) {
	return s.user, s.err
}

func TestWatchingPublishesEvents(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	events, cancel := hub.Subscribe(4)
	defer cancel()

	_, err := NewWatching(stubIdentity{user: "user-1"}, hub).CurrentUser(context.Background(), "token")
	require.NoError(t, err)
	_, err = NewWatching(stubIdentity{err: domain.ErrUnauthorized}, hub).CurrentUser(context.Background(), "token")
	require.Error(t, err)

	first := <-events
	assert.Equal(t, SessionResolved, first.Kind)
	assert.Equal(t, "user-1", first.UserID)

	second := <-events
	assert.Equal(t, SessionRejected, second.Kind)
	assert.True(t, errors.Is(second.Err, domain.ErrUnauthorized))
}

func TestHubDropsWhenFullAndCloses(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	events, cancel := hub.Subscribe(1)

	hub.Publish(SessionEvent{Kind: SessionResolved, UserID: "a"})
	hub.Publish(SessionEvent{Kind: SessionResolved, UserID: "b"})

	got := <-events
	assert.Equal(t, "a", got.UserID)

	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)

	hub.Close()
	late, _ := hub.Subscribe(1)
	_, open = <-late
	assert.False(t, open)
}
