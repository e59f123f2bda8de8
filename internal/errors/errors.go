package errors

import (
	stderrors "errors"
	"fmt"
)

// SongbookError is the structured error type for songbook.
// It carries a stable code for matching plus context for logs and users.
type SongbookError struct {
	// Code is the unique error code (e.g., "ERR_201_CORPUS_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *SongbookError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SongbookError) Unwrap() error {
	return e.Cause
}

// Is matches another SongbookError by code, so errors.Is works against the
// sentinel values below.
func (e *SongbookError) Is(target error) bool {
	if t, ok := target.(*SongbookError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *SongbookError) WithDetail(key, value string) *SongbookError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *SongbookError) WithSuggestion(suggestion string) *SongbookError {
	e.Suggestion = suggestion
	return e
}

// New creates a new SongbookError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SongbookError {
	return &SongbookError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SongbookError from an existing error.
// The error's message becomes the SongbookError message.
func Wrap(code string, err error) *SongbookError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is matching by code.
var (
	ErrCorpusNotFound = &SongbookError{Code: ErrCodeCorpusNotFound}
	ErrCorpusInvalid  = &SongbookError{Code: ErrCodeCorpusInvalid}
	ErrCacheBusy      = &SongbookError{Code: ErrCodeCacheBusy}
	ErrOfflineNoData  = &SongbookError{Code: ErrCodeOfflineNoData}
	ErrSongNotFound   = &SongbookError{Code: ErrCodeSongNotFound}
	ErrInvalidInput   = &SongbookError{Code: ErrCodeInvalidInput}
)

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *SongbookError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *SongbookError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SongbookError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable reports whether err, or any error it wraps, is a retryable
// SongbookError.
func IsRetryable(err error) bool {
	var se *SongbookError
	if stderrors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// IsFatal reports whether err carries fatal severity.
func IsFatal(err error) bool {
	var se *SongbookError
	if stderrors.As(err, &se) {
		return se.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from the first SongbookError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var se *SongbookError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}
