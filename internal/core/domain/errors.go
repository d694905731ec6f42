package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested taxon does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguousMatch indicates a name lookup matched more than one taxon.
	// Callers should retry with a numeric taxon ID.
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrCycleDetected indicates a taxonomy traversal revisited a taxon.
	// The store's ancestry data is malformed; the traversal is aborted
	// rather than recursing unboundedly.
	ErrCycleDetected = errors.New("cycle detected in taxonomy")

	// ErrFileAccess indicates the target file could not be opened,
	// read, or written.
	ErrFileAccess = errors.New("file access failed")

	// ErrUnsupportedFormat indicates the target file has no
	// embedded-metadata capability.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrUnknownNamespace indicates a tag name does not match any known
	// namespace prefix. Engine-generated tags never trigger this; it
	// guards against externally supplied tag names.
	ErrUnknownNamespace = errors.New("unknown metadata namespace")
)

// NamespaceWriteError reports a partial metadata write. Namespace writes
// are sequential and individually durable: there is no rollback, so the
// error names the namespace that failed and every namespace that was
// already committed before it.
type NamespaceWriteError struct {
	// Path is the file whose write failed.
	Path string

	// Failed is the first namespace whose write failed.
	Failed Namespace

	// Committed lists the namespaces written successfully before the failure.
	Committed []Namespace

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *NamespaceWriteError) Error() string {
	if len(e.Committed) == 0 {
		return fmt.Sprintf("writing %s metadata to %s: %v", e.Failed, e.Path, e.Err)
	}
	return fmt.Sprintf("writing %s metadata to %s (already committed: %v): %v",
		e.Failed, e.Path, e.Committed, e.Err)
}

// Unwrap returns the underlying failure.
func (e *NamespaceWriteError) Unwrap() error {
	return e.Err
}
