// Package apperrors defines the typed errors that cross component
// boundaries. The HTTP layer matches them with errors.As to pick status
// codes; everything else only wraps and rethrows.
package apperrors

import "fmt"

// ExtractionCause classifies why text extraction failed.
type ExtractionCause string

const (
	CauseCorrupt             ExtractionCause = "corrupt"
	CauseUnsupportedEncoding ExtractionCause = "unsupported-encoding"
	CauseEmpty               ExtractionCause = "empty"
)

// ValidationError reports bad input shape: unsupported file type,
// oversized file, empty query. Rejected at the boundary with no side
// effects and never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ExtractionError reports that a decoder could not produce usable text.
// It aborts ingestion before any persistence.
type ExtractionError struct {
	Cause ExtractionCause
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("text extraction failed (%s): %v", e.Cause, e.Err)
	}
	return fmt.Sprintf("text extraction failed (%s)", e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// StorageError reports a blob upload failure, or a database write failure
// before the document row exists. All side effects are compensated before
// it is returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation '%s' failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ProcessingError reports a failure after the document row exists. The
// row is retained with status "error" rather than deleted, so the failed
// upload stays queryable.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("document processing failed at %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// ProviderError reports an embedding or LLM call failure. It is never
// fatal: callers recover locally by degrading to a documented fallback,
// so this type only ever reaches logs.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider '%s' call failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
