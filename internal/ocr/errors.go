package ocr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common extraction errors
var (
	// ErrExtractionTimeout is returned when recognition does not finish before the
	// extractor's deadline. The worker is still released.
	ErrExtractionTimeout = errors.New("text extraction timed out")

	// ErrExtractionFailed is returned when the OCR engine or PDF backend fails.
	// The engine's own error is kept in the chain.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrIntegrationShape is returned when a PDF backend cannot be resolved to a
	// callable text function.
	ErrIntegrationShape = errors.New("PDF backend did not resolve to a text function")

	// ErrUnsupportedFormat is returned when the input is neither an image nor a PDF.
	ErrUnsupportedFormat = errors.New("unsupported certificate format")

	// ErrFileTooLarge is returned when the input exceeds the configured upload limit.
	ErrFileTooLarge = errors.New("certificate file exceeds the maximum size")

	// ErrMissingCredentials is returned when a Google engine is selected without
	// GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrUnknownEngine is returned by NewEngine for an unrecognised engine name.
	ErrUnknownEngine = errors.New("unknown OCR engine")
)

// ExtractionError wraps errors with the operation that failed.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "ExtractImage", "Recognize").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(op string, err error, details string) *ExtractionError {
	return &ExtractionError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't already one.
func WrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return err
	}

	return NewExtractionError(op, err, details)
}

// engineFailure marks err as ErrExtractionFailed while keeping the engine's error
// reachable through errors.Is and errors.As.
func engineFailure(op string, err error) error {
	return NewExtractionError(op, fmt.Errorf("%w: %w", ErrExtractionFailed, err), "")
}

// IntegrationError reports a PDF backend name that did not resolve. Available lists
// the names that are registered.
type IntegrationError struct {
	Backend   string
	Available []string
}

func (e *IntegrationError) Error() string {
	avail := append([]string(nil), e.Available...)
	sort.Strings(avail)
	return fmt.Sprintf("ocr: %v: %q (registered: %s)", ErrIntegrationShape, e.Backend, strings.Join(avail, ", "))
}

// Unwrap lets errors.Is match ErrIntegrationShape.
func (e *IntegrationError) Unwrap() error {
	return ErrIntegrationShape
}
