package crate

import "fmt"

// LoadError indicates crate metadata could not be read or decoded. A graph
// that fails to load aborts the validation run; it is never reported as a
// check result.
type LoadError struct {
	Path    string // Crate path or archive member, empty for raw readers
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	switch {
	case e.Path != "" && e.Cause != nil:
		return fmt.Sprintf("failed to load crate metadata from %s: %s: %v", e.Path, e.Message, e.Cause)
	case e.Path != "":
		return fmt.Sprintf("failed to load crate metadata from %s: %s", e.Path, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("failed to load crate metadata: %s: %v", e.Message, e.Cause)
	default:
		return fmt.Sprintf("failed to load crate metadata: %s", e.Message)
	}
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// NewLoadError creates a new load error.
func NewLoadError(path, message string, cause error) *LoadError {
	return &LoadError{
		Path:    path,
		Message: message,
		Cause:   cause,
	}
}
