package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error so that callers (and the HTTP layer) can react
// without string matching.
type Kind string

const (
	KindConfiguration        Kind = "CONFIGURATION_ERROR"
	KindNotFound             Kind = "NOT_FOUND"
	KindAlreadyExists        Kind = "ALREADY_EXISTS"
	KindBusy                 Kind = "BUSY"
	KindEmbeddingUnavailable Kind = "EMBEDDING_UNAVAILABLE"
	KindVectorUnavailable    Kind = "VECTOR_STORE_UNAVAILABLE"
	KindGenUnavailable       Kind = "GENERATION_UNAVAILABLE"
	KindPartialFailure       Kind = "PARTIAL_FAILURE"
	KindInvariantViolation   Kind = "INVARIANT_VIOLATION"
	KindUnsupportedFormat    Kind = "UNSUPPORTED_FORMAT"
	KindCorruptFile          Kind = "CORRUPT_FILE"
)

// Error is the single error type crossing service boundaries.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, &Error{Kind: ...}) style matching on the kind only.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Convenience constructors for the kinds used all over the pipeline.

func ConfigurationError(format string, args ...interface{}) *Error {
	return New(KindConfiguration, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

func AlreadyExists(format string, args ...interface{}) *Error {
	return New(KindAlreadyExists, format, args...)
}

func Busy(format string, args ...interface{}) *Error {
	return New(KindBusy, format, args...)
}

func EmbeddingUnavailable(err error, format string, args ...interface{}) *Error {
	return Wrap(KindEmbeddingUnavailable, err, format, args...)
}

func VectorStoreUnavailable(err error, format string, args ...interface{}) *Error {
	return Wrap(KindVectorUnavailable, err, format, args...)
}

func GenerationUnavailable(err error, format string, args ...interface{}) *Error {
	return Wrap(KindGenUnavailable, err, format, args...)
}

func InvariantViolation(format string, args ...interface{}) *Error {
	return New(KindInvariantViolation, format, args...)
}
