package llm

import (
	"errors"
	"fmt"
)

// GenerationError wraps any transport or response failure from the
// completion service. Call sites degrade to a local fallback instead of
// propagating these to the player.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
