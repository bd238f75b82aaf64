package domain

import "errors"

// ErrorKind classifies a validation failure. All kinds are non-retryable:
// the caller must fix the input and resubmit.
type ErrorKind string

const (
	ErrMissingOrEmptyField   ErrorKind = "missing_or_empty_field"
	ErrInvalidAddressLiteral ErrorKind = "invalid_address_literal"
	ErrDuplicateID           ErrorKind = "duplicate_id"
	ErrDuplicateCIDR         ErrorKind = "duplicate_cidr"
	ErrDuplicateHostname     ErrorKind = "duplicate_hostname"
	ErrDuplicateAddress      ErrorKind = "duplicate_address"
	ErrDanglingReference     ErrorKind = "dangling_reference"
	ErrAddressOutsideSubnet  ErrorKind = "address_outside_subnet"
	ErrInvalidTargetKind     ErrorKind = "invalid_target_kind"
	ErrInvalidTargetShape    ErrorKind = "invalid_target_shape"
)

// Error is a validation failure with a precise, caller-actionable message.
// It names the offending entity, field, and value so that a "fix one thing
// and retry" workflow works without log spelunking.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the ErrorKind carried by err, or "" when err is not a
// validation error.
func KindOf(err error) ErrorKind {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return ""
}
