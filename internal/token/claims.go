package token

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/skolara/skolara/internal/identity"
)

// TypeRefresh marks a token minted for the refresh flow. Access and refresh
// tokens share one signing path and claim schema; the type claim and TTL are
// the only differences between them.
const TypeRefresh = "refresh"

// Claims is the JWT payload for every token the authority mints.
type Claims struct {
	Role     identity.Role `json:"role"`
	Type     string        `json:"type,omitempty"`
	SchoolID string        `json:"school_id,omitempty"`
	jwt.RegisteredClaims
}

// IsRefresh reports whether the token carries the refresh marker.
func (c *Claims) IsRefresh() bool {
	return c != nil && c.Type == TypeRefresh
}
