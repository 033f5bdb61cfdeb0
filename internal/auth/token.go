// Package auth issues and verifies bearer tokens and resolves the acting user of a request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for the identity.
func (t *Tokens) Issue(id Identity) (string, error) {
	now := t.now()
	c := claims{
		Email: id.Email,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry and returns the identity carried by the token.
func (t *Tokens) Parse(tokenStr string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenStr, &c, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return Identity{UserID: userID, Email: c.Email, Role: c.Role}, nil
}
