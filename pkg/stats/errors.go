package stats

import "errors"

var (
	// ErrDegenerateInput is returned when a regressor has zero variance or a
	// fit is singular
	ErrDegenerateInput = errors.New("degenerate input")

	// ErrInvalidInput is returned for caller errors such as mismatched lengths
	// or misaligned indices
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientData is returned when there are not enough observations
	ErrInsufficientData = errors.New("insufficient data")
)
