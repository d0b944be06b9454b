package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// Sentinel errors returned by VerifyToken. Expired tokens are reported
// separately from every other failure so the auth gateway can tell the client
// that re-login is needed rather than that the token is garbage.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// SessionToken is a signed JWT together with its expiry. The token is the
// only session state; nothing is persisted server-side, so a leaked token
// stays valid until its natural expiry.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// Claims are the identity assertions embedded in a session token.
type Claims struct {
	UserID uint64
	Email  string
	Role   string
}

// NewSessionToken builds and signs an HS256 JWT for a user. The JWT carries
// sub (user ID), email, role, exp and iat. ttlDays controls the lifetime;
// callers pass the configured value, which defaults to 7 days.
func NewSessionToken(secret string, userID uint64, email, role string, ttlDays int) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  role,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// VerifyToken parses and validates a session token. It returns the embedded
// claims on success, ErrTokenExpired when the token is past its exp claim,
// and ErrTokenInvalid for any other failure (wrong signature, wrong
// algorithm, malformed payload). A tampered token can never verify because
// the HMAC covers the whole claims payload.
func VerifyToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !tok.Valid {
		return Claims{}, ErrTokenInvalid
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrTokenInvalid
	}
	var out Claims
	switch sub := mc["sub"].(type) {
	case float64: // JSON numbers decode as float64
		out.UserID = uint64(sub)
	default:
		return Claims{}, ErrTokenInvalid
	}
	if out.UserID == 0 {
		return Claims{}, ErrTokenInvalid
	}
	if v, ok := mc["email"].(string); ok {
		out.Email = v
	}
	if v, ok := mc["role"].(string); ok {
		out.Role = v
	}
	if out.Role == "" {
		return Claims{}, ErrTokenInvalid
	}
	return out, nil
}
