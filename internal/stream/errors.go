package stream

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error is returned by every ledger operation that fails for a domain
// reason. Callers branch on Code rather than on message text.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context (stream id, amounts, status).
	Details map[string]string
}

// ErrorCode categorizes ledger errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates bad creation parameters, including an
	// underfunded or overfunded deposit.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeNotFound indicates an unknown stream id or an unconfigured ledger.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeAlreadyConfigured indicates a second Configure attempt.
	ErrCodeAlreadyConfigured ErrorCode = "ALREADY_CONFIGURED"

	// ErrCodeUnauthorized indicates the caller lacks the required role.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeIllegalState indicates the operation is not permitted in the
	// stream's current status.
	ErrCodeIllegalState ErrorCode = "ILLEGAL_STATE"

	// ErrCodeNothingToWithdraw indicates accrued == withdrawn.
	ErrCodeNothingToWithdraw ErrorCode = "NOTHING_TO_WITHDRAW"

	// ErrCodeOverflow indicates rate * time does not fit in an amount.
	ErrCodeOverflow ErrorCode = "ARITHMETIC_OVERFLOW"

	// ErrCodeInsufficientBalance indicates the transfer source cannot cover
	// the amount.
	ErrCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Details[k])
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, ", "))
}

// Is lets errors.Is match on the code alone, e.g.
// errors.Is(err, &Error{Code: ErrCodeIllegalState}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// With returns a copy of e carrying an extra detail.
func (e *Error) With(key, value string) *Error {
	d := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		d[k] = v
	}
	d[key] = value
	return &Error{Code: e.Code, Message: e.Message, Details: d}
}

// CodeOf returns the code of the first *Error in err's chain, or "" when
// err is nil or not a ledger error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsNotFound returns true if the error is a not-found error.
func IsNotFound(err error) bool { return HasCode(err, ErrCodeNotFound) }

// IsIllegalState returns true if the error is an illegal-state error.
func IsIllegalState(err error) bool { return HasCode(err, ErrCodeIllegalState) }

// IsUnauthorized returns true if the error is an authorization failure.
func IsUnauthorized(err error) bool { return HasCode(err, ErrCodeUnauthorized) }

// IsValidation returns true if the error is a validation error.
func IsValidation(err error) bool { return HasCode(err, ErrCodeValidation) }

func newError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// NewValidationError creates an Error for rejected creation parameters.
func NewValidationError(msg string) *Error { return newError(ErrCodeValidation, msg) }

// NewNotFoundError creates an Error for an unknown stream id.
func NewNotFoundError(id uint64) *Error {
	return newError(ErrCodeNotFound, "stream not found").With("stream", fmt.Sprintf("%d", id))
}

// NewNotConfiguredError creates an Error for a ledger that was never configured.
func NewNotConfiguredError() *Error {
	return newError(ErrCodeNotFound, "ledger not configured")
}

// NewAlreadyConfiguredError creates an Error for a repeated Configure.
func NewAlreadyConfiguredError() *Error {
	return newError(ErrCodeAlreadyConfigured, "ledger already configured")
}

// NewUnauthorizedError creates an Error naming the principal(s) the caller
// failed to prove.
func NewUnauthorizedError(required ...Principal) *Error {
	names := make([]string, len(required))
	for i, p := range required {
		names[i] = string(p)
	}
	return newError(ErrCodeUnauthorized, "caller not authorized").With("required", strings.Join(names, "|"))
}

// NewIllegalStateError creates an Error for a forbidden transition.
func NewIllegalStateError(msg string, status Status) *Error {
	return newError(ErrCodeIllegalState, msg).With("status", string(status))
}

// NewNothingToWithdrawError creates an Error for a withdraw with no owed amount.
func NewNothingToWithdrawError(accrued, withdrawn int64) *Error {
	return newError(ErrCodeNothingToWithdraw, "nothing to withdraw").
		With("accrued", fmt.Sprintf("%d", accrued)).
		With("withdrawn", fmt.Sprintf("%d", withdrawn))
}

// NewOverflowError creates an Error for an amount computation that overflowed.
func NewOverflowError(rate int64, seconds uint64) *Error {
	return newError(ErrCodeOverflow, "rate * seconds overflows amount").
		With("rate", fmt.Sprintf("%d", rate)).
		With("seconds", fmt.Sprintf("%d", seconds))
}

// NewInsufficientBalanceError creates an Error for a transfer the source cannot cover.
func NewInsufficientBalanceError(from Principal, have, want int64) *Error {
	return newError(ErrCodeInsufficientBalance, "insufficient balance").
		With("account", string(from)).
		With("balance", fmt.Sprintf("%d", have)).
		With("amount", fmt.Sprintf("%d", want))
}

// NewBalanceOverflowError creates an Error for a credit that would push an
// account balance past the amount range.
func NewBalanceOverflowError(to Principal, have, add int64) *Error {
	return newError(ErrCodeOverflow, "balance overflows amount").
		With("account", string(to)).
		With("balance", fmt.Sprintf("%d", have)).
		With("amount", fmt.Sprintf("%d", add))
}
