package oauth2

import "errors"

var (
	ErrStateMismatch = errors.New("oauth state mismatch")
	ErrMissingCode   = errors.New("no authorization code received")
)
