// Package token mints and verifies the signed, expiring credentials used by
// the passwordless login flow: short-lived magic-link tokens and the 30-day
// session tokens carried in the session cookie. Verification is stateless;
// single-use enforcement for magic links lives in the store layer.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TypeMagicLink marks a token that authenticates one verification request.
	TypeMagicLink = "magic-link"
	// TypeSession marks the long-lived credential set as a cookie.
	TypeSession = "passwordless"

	MagicLinkTTL = 15 * time.Minute
	SessionTTL   = 30 * 24 * time.Hour
)

// ErrInvalidToken covers every verification failure: bad signature, expiry,
// malformed input. Callers must not distinguish sub-reasons to the client.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the verified content of a token.
type Claims struct {
	Email     string
	Type      string
	JTI       string
	ExpiresAt time.Time
}

// Service issues and verifies HS256-signed tokens with a shared secret.
type Service struct {
	secret []byte
}

func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// IssueMagicLink returns a signed magic-link token for the email, valid for
// 15 minutes, carrying a random jti for single-use tracking.
func (s *Service) IssueMagicLink(email string) (string, error) {
	return s.issue(email, TypeMagicLink, MagicLinkTTL)
}

// IssueSession returns a signed session token for the email, valid for 30 days.
func (s *Service) IssueSession(email string) (string, error) {
	return s.issue(email, TypeSession, SessionTTL)
}

func (s *Service) issue(email, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"email": email,
		"type":  typ,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded claims.
// Any failure, including malformed input, returns ErrInvalidToken.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	email, _ := mc["email"].(string)
	typ, _ := mc["type"].(string)
	jti, _ := mc["jti"].(string)
	if email == "" || typ == "" {
		return nil, ErrInvalidToken
	}

	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}

	return &Claims{
		Email:     email,
		Type:      typ,
		JTI:       jti,
		ExpiresAt: exp.Time,
	}, nil
}
