package manifest

import (
	"errors"
	"fmt"
)

// =============================================================================
// Generation Errors
// =============================================================================

// ErrNameCollision is the sentinel wrapped by every GenerationError
// raised for a duplicate resource name.
var ErrNameCollision = errors.New("resource name collision")

// GenerationError is fatal: the output set would be inconsistent.
type GenerationError struct {
	Resource string
	Message  string
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("generate %s: %s", e.Resource, e.Message)
	}
	return fmt.Sprintf("generate: %s", e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// NewGenerationError creates a GenerationError wrapping a sentinel.
func NewGenerationError(resource, message string, err error) *GenerationError {
	return &GenerationError{Resource: resource, Message: message, Err: err}
}
