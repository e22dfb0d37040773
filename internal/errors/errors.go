package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Base error types
var (
	ErrUnknownFormat     = errors.New("unknown format")
	ErrParserNotFound    = errors.New("parser not found")
	ErrUnparsableContent = errors.New("unparsable content")
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict retry exhausted")
	ErrInternal          = errors.New("internal error")
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeUnknownFormat  ErrorType = "unknown_format"
	ErrorTypeParserNotFound ErrorType = "parser_not_found"
	ErrorTypeUnparsable     ErrorType = "unparsable_content"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict_retry_exhausted"
	ErrorTypeInternal       ErrorType = "internal"
)

// IngestError is a structured error for ingestion and triage operations.
type IngestError struct {
	Type ErrorType
	Op   string // Operation that failed (e.g., "import_batch", "update_finding")
	Err  error  // Underlying error
}

func (e *IngestError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *IngestError) Is(target error) bool {
	if target == nil {
		return false
	}

	switch target {
	case ErrUnknownFormat:
		return e.Type == ErrorTypeUnknownFormat
	case ErrParserNotFound:
		return e.Type == ErrorTypeParserNotFound
	case ErrUnparsableContent:
		return e.Type == ErrorTypeUnparsable
	case ErrValidation:
		return e.Type == ErrorTypeValidation
	case ErrNotFound:
		return e.Type == ErrorTypeNotFound
	case ErrConflict:
		return e.Type == ErrorTypeConflict
	}

	return errors.Is(e.Err, target)
}

// New creates a new IngestError.
func New(errorType ErrorType, op string, err error) *IngestError {
	return &IngestError{Type: errorType, Op: op, Err: err}
}

// Newf creates a new IngestError from a formatted message.
func Newf(errorType ErrorType, op, format string, args ...any) *IngestError {
	return &IngestError{Type: errorType, Op: op, Err: fmt.Errorf(format, args...)}
}

// TypeOf extracts the taxonomy kind from err, defaulting to internal.
func TypeOf(err error) ErrorType {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Type
	}
	return ErrorTypeInternal
}

// HTTPStatus maps an error to the status code its kind should surface as.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeUnknownFormat, ErrorTypeParserNotFound, ErrorTypeUnparsable, ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
