package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	// ErrorTypeConfiguration covers missing or conflicting user input and
	// invalid settings. Raised before any browser or network work starts.
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeAuthentication means the site rejected the credentials.
	ErrorTypeAuthentication ErrorType = "authentication"
	// ErrorTypeCollection is a failure mid-scrape; whatever was collected
	// before it is still persisted.
	ErrorTypeCollection ErrorType = "collection"
	// ErrorTypePersistence means a record set could not be written or read.
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeSyncRow is a single rejected row. It never aborts the batch.
	ErrorTypeSyncRow ErrorType = "sync_row"

	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is a typed failure carrying its category and optional cause
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error without a cause
func New(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error around err
func Wrap(t ErrorType, err error, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Err: err}
}

func Configuration(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfiguration, format, args...)
}

func Authentication(err error, format string, args ...interface{}) *Error {
	return Wrap(ErrorTypeAuthentication, err, format, args...)
}

func Collection(err error, format string, args ...interface{}) *Error {
	return Wrap(ErrorTypeCollection, err, format, args...)
}

func Persistence(err error, format string, args ...interface{}) *Error {
	return Wrap(ErrorTypePersistence, err, format, args...)
}

// TypeOf returns the type of the first *Error in err's chain, or
// ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err's chain contains an *Error of type t
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// Process exit codes.
const (
	ExitOK             = 0
	ExitUnexpected     = 1
	ExitConfiguration  = 2
	ExitAuthentication = 3
	ExitPersistence    = 4
	ExitRowsRejected   = 5
)

// ExitCode maps an error to the process exit status. A nil error is success.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch TypeOf(err) {
	case ErrorTypeConfiguration:
		return ExitConfiguration
	case ErrorTypeAuthentication:
		return ExitAuthentication
	case ErrorTypePersistence:
		return ExitPersistence
	case ErrorTypeSyncRow:
		return ExitRowsRejected
	default:
		return ExitUnexpected
	}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0, 429:
		return true
	default:
		return statusCode >= 500
	}
}
