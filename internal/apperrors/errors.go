package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers branch on. Recoverable per-item
// failures (extraction items, dedup comparisons) are logged at the point of
// recovery and never surface as these.
var (
	// ErrUnsupportedFormat means no registered parser accepts the file. Fatal
	// for the document, recoverable for the job.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrDecode means the text encoding of the file could not be determined.
	ErrDecode = errors.New("unable to decode file content")

	// ErrNotFound means a referenced company, document, analysis or initiative
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateDocument means a file with identical content was already
	// uploaded for the company.
	ErrDuplicateDocument = errors.New("document already uploaded")
)

// NotFound wraps ErrNotFound with the entity kind and ID.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// UnsupportedFormat wraps ErrUnsupportedFormat with the offending filename.
func UnsupportedFormat(filename string) error {
	return fmt.Errorf("no parser for '%s': %w", filename, ErrUnsupportedFormat)
}

// IndexOperationError marks an embedding/store/delete failure in the vector
// index. These abort the current document but not the whole job.
type IndexOperationError struct {
	Op  string // "upsert", "delete", "fetch"
	Err error
}

func (e *IndexOperationError) Error() string {
	return fmt.Sprintf("index %s failed: %v", e.Op, e.Err)
}

func (e *IndexOperationError) Unwrap() error { return e.Err }
