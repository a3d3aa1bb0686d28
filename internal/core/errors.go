package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeUnauthenticated      = "unauthenticated"
	ErrCodeAlreadyAuthenticated = "already_authenticated"
	ErrCodeBadRequest           = "bad_request"
	ErrCodeUserNotFound         = "user_not_found"
	ErrCodeInsufficientBalance  = "insufficient_balance"
	ErrCodeInvalidAmount        = "invalid_amount"
	ErrCodeUndeliverable        = "undeliverable"
	ErrCodePersistenceFailure   = "persistence_failure"
	ErrCodeNotInRoom            = "not_in_room"
	ErrCodeForbidden            = "forbidden"
	ErrCodeRateLimited          = "rate_limited"
	ErrCodeMediaUnavailable     = "media_unavailable"
)

var (
	ErrUnauthenticated      = errors.New("not authenticated")
	ErrAlreadyAuthenticated = errors.New("connection already bound to another identity")
	ErrNotInRoom            = errors.New("not in room")
	ErrForbidden            = errors.New("forbidden")
	ErrBadRequest           = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
