package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios. The taxonomy follows the
// error classes a caller must distinguish between: InputInvalid maps to
// HTTP 400, AuthRequired and InsufficientCredit to 403, NotFound to 404,
// SignatureInvalid/NotFound inside a webhook become a plain-text body
// instead of an HTTP error code, RemoteUnavailable is swallowed at the
// call site and counted as zero, PersistenceError inside a scope close is
// logged but never re-raised.
var (
	// InputInvalid: amount, timestamp, empty prompt, malformed request.
	ErrInputInvalid = errors.New("ledger: invalid input")

	// AuthRequired: caller lacks the privilege an admin endpoint requires.
	ErrAuthRequired = errors.New("ledger: authentication required")

	// InsufficientCredit: admission refused a request for lack of balance.
	ErrInsufficientCredit = errors.New("ledger: insufficient credit")

	// NotFound: ticket, redemption code, or ledger entry does not exist.
	ErrNotFound = errors.New("ledger: not found")

	// SignatureInvalid: a payment callback's signature did not verify.
	ErrSignatureInvalid = errors.New("ledger: invalid signature")

	// RemoteUnavailable: an image fetch or payment POST failed.
	ErrRemoteUnavailable = errors.New("ledger: remote unavailable")

	// PersistenceError: the store failed to read or write.
	ErrPersistenceError = errors.New("ledger: persistence error")

	// Narrower sentinels used by individual components; all classify under
	// one of the taxonomy errors above via errors.Is.
	ErrAlreadyExists     = errors.New("ledger: already exists")
	ErrTicketNotFound    = fmt.Errorf("%w: ticket", ErrNotFound)
	ErrCodeNotFound      = fmt.Errorf("%w: redemption code", ErrNotFound)
	ErrCodeAlreadyUsed   = fmt.Errorf("%w: redemption code already received", ErrInputInvalid)
	ErrCodeExpired       = fmt.Errorf("%w: redemption code expired", ErrInputInvalid)
	ErrAmountOutOfPolicy = fmt.Errorf("%w: amount outside allowed range", ErrInputInvalid)
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("ledger: validation failed for %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrInputInvalid, so errors.Is classification
// works without every caller knowing about ValidationError specifically.
func (e ValidationError) Is(target error) bool {
	return target == ErrInputInvalid
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "ledger: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("ledger: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInsufficientCredit returns true if admission refused for lack of balance.
func IsInsufficientCredit(err error) bool {
	return errors.Is(err, ErrInsufficientCredit)
}

// IsInputInvalid returns true if the error stems from bad caller input.
func IsInputInvalid(err error) bool {
	return errors.Is(err, ErrInputInvalid)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable)
}
