package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// SessionState describes where the session check is.
type SessionState int

const (
	// StateUnknown is the zero value before Bootstrap runs.
	StateUnknown SessionState = iota
	// StateChecking means a stored token exists and is being verified.
	StateChecking
	// StateAuthenticated means the token verified, or verification could not
	// complete and the cached user is being trusted until it can.
	StateAuthenticated
	// StateUnauthenticated means there is no usable session.
	StateUnauthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Session tracks the signed-in user across a Client's lifetime.
type Session struct {
	client *Client

	mu    sync.RWMutex
	state SessionState
	user  *User
}

// NewSession wraps a Client with session tracking. State starts Unknown
// until Bootstrap runs.
func NewSession(c *Client) *Session {
	return &Session{client: c, state: StateUnknown}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the signed-in user, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Bootstrap restores the session at startup. With no stored token it settles
// on Unauthenticated immediately. With one, it verifies against the server:
// a definitive rejection clears the token, while a network failure keeps the
// session provisionally authenticated so a flaky connection does not sign
// the user out of a still-valid session.
func (s *Session) Bootstrap(ctx context.Context) (SessionState, error) {
	token, err := s.client.Token()
	if err != nil {
		s.set(StateUnauthenticated, nil)
		return StateUnauthenticated, err
	}
	if token == "" {
		s.set(StateUnauthenticated, nil)
		return StateUnauthenticated, nil
	}

	s.set(StateChecking, nil)

	u, err := s.client.Me(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			_ = s.client.Logout()
			s.set(StateUnauthenticated, nil)
			return StateUnauthenticated, nil
		}
		s.set(StateAuthenticated, nil)
		return StateAuthenticated, err
	}

	s.set(StateAuthenticated, u)
	return StateAuthenticated, nil
}

// Login signs in and moves the session to Authenticated.
func (s *Session) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.set(StateAuthenticated, u)
	return u, nil
}

// Register creates an account and moves the session to Authenticated.
func (s *Session) Register(ctx context.Context, p RegisterParams) (*User, error) {
	u, err := s.client.Register(ctx, p)
	if err != nil {
		return nil, err
	}
	s.set(StateAuthenticated, u)
	return u, nil
}

// Logout clears the stored token and the cached user.
func (s *Session) Logout() error {
	err := s.client.Logout()
	s.set(StateUnauthenticated, nil)
	return err
}

func (s *Session) set(state SessionState, u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.user = u
}
