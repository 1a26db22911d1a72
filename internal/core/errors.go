package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeInvalidPayload    = "invalid_payload"
	ErrCodeReceiverNotFound  = "receiver_not_found"
	ErrCodeLedgerUnavailable = "ledger_unavailable"
	ErrCodeBadRequest        = "bad_request"
	ErrCodeUnauthorized      = "unauthorized"
)

var (
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrReceiverNotFound = errors.New("receiver not found")
)

// CoreError wraps a code and human-readable message. Errors of this type are
// scoped to a single send and never tear down the session.
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
