// Package client is a small Go SDK for the API. It wraps the auth endpoints,
// keeps the session token in a pluggable store and exposes a session state
// the caller can render from (signed in, signed out, still checking).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// User is the account shape the API returns. The server never sends
// credential material.
type User struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// APIError is a non-2xx response decoded into the server's message shape.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// Client talks to one API base URL. The token travels per request; there is
// no process-global header state, so two Clients with different stores never
// leak sessions into each other.
type Client struct {
	baseURL string
	http    *http.Client
	store   TokenStore
}

// New builds a Client. A nil store keeps the token in memory only.
func New(baseURL string, store TokenStore) *Client {
	if store == nil {
		store = NewMemoryTokenStore()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		store:   store,
	}
}

type authResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    *User  `json:"user"`
}

// Login exchanges credentials for a session token and persists it.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email": email, "password": password}
	var out authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, "", &out); err != nil {
		return nil, err
	}
	if err := c.store.Save(out.Token); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	return out.User, nil
}

// RegisterParams are the fields accepted by registration. Role defaults to
// TENANT server-side when empty.
type RegisterParams struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Phone    *string `json:"phone,omitempty"`
	Role     string  `json:"role,omitempty"`
}

// Register creates an account and persists the returned token, so the caller
// is signed in immediately.
func (c *Client) Register(ctx context.Context, p RegisterParams) (*User, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", p, "", &out); err != nil {
		return nil, err
	}
	if err := c.store.Save(out.Token); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	return out.User, nil
}

// Me fetches the current account using the stored token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	token, err := c.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if token == "" {
		return nil, &APIError{StatusCode: http.StatusUnauthorized, Message: "no session"}
	}
	var out struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, token, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Logout discards the local session. The token itself stays valid until
// expiry; the server keeps no session state to invalidate.
func (c *Client) Logout() error {
	return c.store.Clear()
}

// Token returns the stored session token, empty when signed out.
func (c *Client) Token() (string, error) {
	return c.store.Load()
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &msg) == nil && msg.Message != "" {
			apiErr.Message = msg.Message
		}
		return apiErr
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}
