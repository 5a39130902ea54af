package errors

import (
	"errors"
	"fmt"
)

// Common error types for the gateway
var (
	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Token errors
	ErrMalformedToken = errors.New("malformed token")
	ErrRefreshFailed  = errors.New("refresh access token failed")

	// Session errors
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrSignupTokenMissing = errors.New("signup token missing")

	// Handshake errors
	ErrMissingHandshakeParams = errors.New("missing handshake parameters")
	ErrInvalidState           = errors.New("invalid state parameter")
	ErrUnknownProvider        = errors.New("unknown oauth provider")

	// Backend errors
	ErrUnknownResponseShape = errors.New("unknown response shape")
	ErrBackend              = errors.New("backend error")

	// General errors
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
