package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPIServer(t *testing.T, meStatus int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			json.NewEncoder(w).Encode(map[string]any{
				"message": "login successful",
				"token":   "issued-token",
				"user":    map[string]any{"id": 5, "email": "ana@example.com", "role": "OWNER"},
			})
		case "/api/auth/me":
			if r.Header.Get("Authorization") != "Bearer stored-token" &&
				r.Header.Get("Authorization") != "Bearer issued-token" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"message": "invalid token"})
				return
			}
			if meStatus != http.StatusOK {
				w.WriteHeader(meStatus)
				json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"user": map[string]any{"id": 5, "email": "ana@example.com", "role": "OWNER"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBootstrapWithoutToken(t *testing.T) {
	srv := newAPIServer(t, http.StatusOK)
	s := NewSession(New(srv.URL, nil))

	state, err := s.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateUnauthenticated, state)
	assert.Nil(t, s.User())
}

func TestBootstrapWithValidToken(t *testing.T) {
	srv := newAPIServer(t, http.StatusOK)
	store := NewMemoryTokenStore()
	require.NoError(t, store.Save("stored-token"))
	s := NewSession(New(srv.URL, store))

	state, err := s.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, state)
	require.NotNil(t, s.User())
	assert.Equal(t, "ana@example.com", s.User().Email)
}

func TestBootstrapWithRejectedToken(t *testing.T) {
	srv := newAPIServer(t, http.StatusUnauthorized)
	store := NewMemoryTokenStore()
	require.NoError(t, store.Save("stored-token"))
	s := NewSession(New(srv.URL, store))

	state, err := s.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateUnauthenticated, state)

	// A definitive rejection discards the stored token.
	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestBootstrapWithUnreachableServer(t *testing.T) {
	srv := newAPIServer(t, http.StatusOK)
	srv.Close()
	store := NewMemoryTokenStore()
	require.NoError(t, store.Save("stored-token"))
	s := NewSession(New(srv.URL, store))

	// The server cannot be reached, which proves nothing about the token.
	// The session stays provisionally authenticated and keeps the token.
	state, err := s.Bootstrap(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateAuthenticated, state)

	token, lerr := store.Load()
	require.NoError(t, lerr)
	assert.Equal(t, "stored-token", token)
}

func TestSessionLoginAndLogout(t *testing.T) {
	srv := newAPIServer(t, http.StatusOK)
	store := NewMemoryTokenStore()
	s := NewSession(New(srv.URL, store))

	u, err := s.Login(context.Background(), "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, "OWNER", u.Role)

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "issued-token", token)

	require.NoError(t, s.Logout())
	assert.Equal(t, StateUnauthenticated, s.State())
	token, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}
