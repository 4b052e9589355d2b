package gridiron

import "errors"

var (
	// ErrInvalidInput marks a malformed call: mismatched lengths, unknown
	// feature names, k out of range, missing or non-numeric values.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDegenerateInput marks a call whose result is mathematically undefined,
	// such as the covariance of a single observation.
	ErrDegenerateInput = errors.New("degenerate input")
)
