package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure. Unknown user, wrong
	// password and suspended account all collapse into this one error.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates a malformed or badly signed token.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenAbsent indicates no bearer token was presented.
	ErrTokenAbsent = errors.New("token absent")
	// ErrForbidden indicates an authenticated actor lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrImmutableRecord is returned on any attempt to modify or delete
	// an audit ledger entry.
	ErrImmutableRecord = errors.New("audit records are immutable")
)
