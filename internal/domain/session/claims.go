package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
)

// Claims is the subset of the backend's access token the storefront reads.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Role   Role   `json:"role"`
	ShopID string `json:"shopId,omitempty"`
}

// ParseClaims decodes an access token without verifying its signature.
// The marketplace API verifies every request; the storefront only needs the
// identity for routing decisions and log fields.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidToken, err)
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}

func (c *Claims) ExpiredAt(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Time)
}

// User is the identity the token carries. Name and email only come from the
// profile endpoint.
func (c *Claims) User() *User {
	return &User{ID: c.UserID, Role: c.Role, ShopID: c.ShopID}
}
