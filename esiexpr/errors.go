package esiexpr

import (
	"errors"
	"fmt"
)

// SyntaxError is returned by [Parse] when encountering unexpected or invalid data.
type SyntaxError struct {
	// Offset is the position in the input where the error occurred.
	Offset int

	// Message may contain a custom message that describes the error.
	Message string

	// Underlying optionally contains the underlying error that lead to this error.
	Underlying error
}

// Error returns a human-readable error message.
func (s *SyntaxError) Error() string {
	if s.Message == "" {
		return fmt.Sprintf("invalid syntax at offset %d", s.Offset)
	}

	return fmt.Sprintf("invalid syntax at offset %d: %s", s.Offset, s.Message)
}

// Is checks if the given error matches the receiver.
func (s *SyntaxError) Is(err error) bool {
	var o *SyntaxError
	return errors.As(err, &o) && o.Offset == s.Offset && o.Message == s.Message
}

// Unwrap returns s.Underlying.
func (s *SyntaxError) Unwrap() error {
	return s.Underlying
}

// UnknownFunctionError is returned internally to signal that a called function has no implementation.
//
// It is never returned to callers of [Eval]; per the evaluation rules an unknown function resolves
// to the literal string "unknown_function" instead of failing evaluation.
type UnknownFunctionError struct {
	// Name is the unresolved function name.
	Name string
}

// Error returns a human-readable error message.
func (u *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %q", u.Name)
}

// Is checks if the given error matches the receiver.
func (u *UnknownFunctionError) Is(err error) bool {
	var o *UnknownFunctionError
	return errors.As(err, &o) && o.Name == u.Name
}
