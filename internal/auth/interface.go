package auth

// JWTVerifier verifies bearer tokens for the auth middleware.
type JWTVerifier interface {
	// VerifyToken validates a token string and returns its claims.
	// Returns domain.ErrUnauthorized if the token is invalid, expired or not a user token.
	VerifyToken(tokenString string) (*Claims, error)

	// Close releases any resources held by the verifier.
	Close() error
}
