package geno

import (
	"errors"
	"fmt"
)

// ErrMalformedInput matches every MalformedInputError via errors.Is.
var ErrMalformedInput = errors.New("malformed input")

// MalformedInputError reports an input that cannot be turned into a genotype
// matrix: a row of the wrong width, or a token that is not a genotype.
type MalformedInputError struct {
	Line   int
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed input at line %d: %s", e.Line, e.Reason)
	}
	return "malformed input: " + e.Reason
}

func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}
