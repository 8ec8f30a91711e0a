package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"gearguard.io/internal/gear"
)

const (
	// Issuer is stamped into and required on every token.
	Issuer = "gearguard"
	// DefaultTokenTTL is the lifetime of an access token.
	DefaultTokenTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("invalid token")

// Identity is what a token asserts about its bearer.
type Identity struct {
	UserID string
	Email  string
	Role   gear.Role
}

// Claims represents JWT claims used across the service.
type Claims struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	Role   gear.Role `json:"role"`
	jwt.RegisteredClaims
}

// Me is the identity view returned by /auth/me.
type Me struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	Role   gear.Role `json:"role"`
	Iat    int64     `json:"iat"`
	Exp    int64     `json:"exp"`
}

func (c *Claims) Me() Me {
	m := Me{UserID: c.UserID, Email: c.Email, Role: c.Role}
	if c.IssuedAt != nil {
		m.Iat = c.IssuedAt.Unix()
	}
	if c.ExpiresAt != nil {
		m.Exp = c.ExpiresAt.Unix()
	}
	return m
}

// TokenCodec signs and verifies HS256 access tokens. It holds no global
// state: secret, lifetime and clock are passed in.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec builds a codec. ttl<=0 selects DefaultTokenTTL and a nil
// clock selects time.Now.
func NewTokenCodec(secret string, ttl time.Duration, now func() time.Time) (*TokenCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth secret is not configured")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TokenCodec{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// TTL reports the lifetime of issued tokens.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for id.
func (c *TokenCodec) Issue(id Identity) (string, error) {
	userID := strings.TrimSpace(id.UserID)
	if userID == "" {
		return "", errors.New("userID is required")
	}
	now := c.now().UTC()
	claims := Claims{
		UserID: userID,
		Email:  id.Email,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry. Every failure
// collapses to ErrInvalidToken.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.UserID != claims.Subject {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
