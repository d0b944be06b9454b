package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestNewSessionToken(t *testing.T) {
	tok, err := NewSessionToken(testSecret, 42, "ana@example.com", "OWNER", 7)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)
	assert.Equal(t, 3, len(strings.Split(tok.Token, ".")))
	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), tok.Exp, time.Minute)
}

func TestVerifyToken(t *testing.T) {
	valid, err := NewSessionToken(testSecret, 42, "ana@example.com", "OWNER", 7)
	require.NoError(t, err)

	expired, err := NewSessionToken(testSecret, 42, "ana@example.com", "OWNER", -1)
	require.NoError(t, err)

	otherSecret, err := NewSessionToken("another-secret", 42, "ana@example.com", "OWNER", 7)
	require.NoError(t, err)

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{name: "valid token", raw: valid.Token},
		{name: "expired token", raw: expired.Token, wantErr: ErrTokenExpired},
		{name: "wrong secret", raw: otherSecret.Token, wantErr: ErrTokenInvalid},
		{name: "tampered signature", raw: tamper(valid.Token), wantErr: ErrTokenInvalid},
		{name: "garbage", raw: "not.a.jwt", wantErr: ErrTokenInvalid},
		{name: "empty", raw: "", wantErr: ErrTokenInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := VerifyToken(testSecret, tc.raw)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint64(42), claims.UserID)
			assert.Equal(t, "ana@example.com", claims.Email)
			assert.Equal(t, "OWNER", claims.Role)
		})
	}
}

func TestVerifyTokenRejectsMissingRole(t *testing.T) {
	// A token without a role claim is useless to the authorizer, even when
	// the signature checks out.
	tok, err := NewSessionToken(testSecret, 42, "ana@example.com", "", 7)
	require.NoError(t, err)
	_, err = VerifyToken(testSecret, tok.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

// tamper flips one byte of the signature segment.
func tamper(raw string) string {
	last := raw[len(raw)-1]
	repl := byte('A')
	if last == 'A' {
		repl = 'B'
	}
	return raw[:len(raw)-1] + string(repl)
}
