package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords
	// alike so callers cannot probe which half of the pair was wrong.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrEmailInUse         = errors.New("auth: email already in use")
	ErrNotFound           = errors.New("auth: not found")

	// ErrInvalidToken indicates an undecodable refresh-token envelope.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrTokenExpired indicates a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid indicates a signature or format failure.
	ErrTokenInvalid = errors.New("auth: token signature invalid")
	// ErrTokenRevoked indicates a refresh token presented after revocation.
	ErrTokenRevoked = errors.New("auth: token has been revoked")
)
