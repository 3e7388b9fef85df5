package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the JWT claim set issued by Supabase Auth.
// See: https://supabase.com/docs/guides/auth/jwts
type Claims struct {
	jwt.RegisteredClaims
	Email       string                 `json:"email"`
	Role        string                 `json:"role"` // "authenticated" or "anon"
	AAL         string                 `json:"aal"`
	SessionID   string                 `json:"session_id"`
	IsAnonymous bool                   `json:"is_anonymous"`
	AppMetadata map[string]interface{} `json:"app_metadata"`
}

// UserID returns the subject claim, the owner id of every document the user creates.
func (c *Claims) UserID() string {
	return c.Subject
}
