package oauthmodel

import "errors"

var (
	ErrAmbiguousCallback = errors.New("callback carries both login tokens and a sign-up request")
	ErrMissingSignupInfo = errors.New("sign-up callback is missing name, email or signup token")
)
