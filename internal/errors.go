package internal

import (
	"errors"
	"fmt"
)

// TransportError represents a failed call to the chat backend: either the
// request never completed or the backend answered with a non-2xx status.
type TransportError struct {
	Op      string // "send", "list sessions", "get shared", ...
	Status  int    // 0 when no response was received
	Message string // the backend's "error" field, if any
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("transport error [%s] status %d: %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("transport error [%s] status %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("transport error [%s]: %v", e.Op, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether no response was received at all
func (e *TransportError) IsNetwork() bool {
	return e.Status == 0
}

// FormatError represents a malformed export document
type FormatError struct {
	Source string // file path, URL or "document"
	Detail string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid chat file format [%s] %s: %v", e.Source, e.Detail, e.Err)
	}
	return fmt.Sprintf("invalid chat file format [%s] %s", e.Source, e.Detail)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// StorageError represents errors accessing the local export archive
type StorageError struct {
	Path string
	Op   string // "open", "read", "write", "remove"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// BackendMessage extracts the backend-supplied error text from err, if any
func BackendMessage(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Message
	}
	return ""
}
