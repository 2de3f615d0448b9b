package auth

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Roles routed by the client.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Claims is the identity carried by an access token.
type Claims struct {
	Subject   string
	Name      string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// ExpiresWithin reports whether the token expires before now+skew. Tokens
// without an expiry never do.
func (c Claims) ExpiresWithin(now time.Time, skew time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(c.ExpiresAt)
}

// IsAdmin reports whether the user belongs to the admin portal.
func (c Claims) IsAdmin() bool { return c.Role == RoleAdmin }

type tokenClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims reads the claims of an access token without verifying its
// signature; the backend verifies, the client only routes and schedules
// refreshes.
func ParseClaims(token string) (Claims, error) {
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}
	c := Claims{
		Subject: tc.Subject,
		Name:    tc.Name,
		Email:   tc.Email,
		Role:    tc.Role,
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c, nil
}
