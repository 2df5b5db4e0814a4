// Package token decodes bearer-token claims without verifying the signature.
//
// The decode is trust-on-read: claims only drive navigation and UI decisions
// on this side. The backend re-validates the token on every API call and is
// the sole authority on authentication and role enforcement, so a forged
// payload buys nothing beyond a broken-looking screen.
package token

import (
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crmdesk/crmctl/internal/model"
)

// Claims is the token payload the CRM backend issues.
type Claims struct {
	ID        string           `json:"id"`
	Username  string           `json:"username"`
	Role      model.Role       `json:"role"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
}

// User derives the account identity from the claims.
func (c *Claims) User() model.User {
	return model.User{ID: c.ID, Username: c.Username, Role: c.Role}
}

// segments handles the url-safe base64 alphabet and restores stripped padding.
var segments = jwt.NewParser(jwt.WithPaddingAllowed())

// Decode extracts the claims from the payload segment of a three-part token.
// Any malformation at any step (segment count, base64, JSON) yields nil,
// never an error: a token the client cannot read is a token without claims.
func Decode(raw string) *Claims {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil
	}
	payload, err := segments.DecodeSegment(parts[1])
	if err != nil {
		return nil
	}
	var c Claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil
	}
	return &c
}
