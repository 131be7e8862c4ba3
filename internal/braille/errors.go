package braille

import "errors"

var (
	// ErrInvalidDot is returned when a dot index falls outside 1-6.
	ErrInvalidDot = errors.New("braille: dot out of range")

	// ErrInvalidPattern is returned when a pattern is not six '0'/'1' characters.
	ErrInvalidPattern = errors.New("braille: invalid pattern")
)
