package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrTokenNotFound     = errors.New("refresh token not found")
	ErrTokenRevoked      = errors.New("refresh token revoked")
	ErrTokenExpired      = errors.New("refresh token expired")
	ErrFamilyCompromised = errors.New("token family revoked due to reuse")

	// ErrTokenReuseDetected is the triggering security event, not a symptom:
	// an already-rotated token came back and the whole family was revoked.
	ErrTokenReuseDetected = errors.New("token reuse detected")

	ErrRateLimitExceeded     = errors.New("token rotation rate limit exceeded")
	ErrRotationLimitExceeded = errors.New("token rotation limit exceeded")
)
