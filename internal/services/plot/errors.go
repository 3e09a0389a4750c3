package plot

import "errors"

var (
	ErrInvalidTimestamp   = errors.New("plot: invalid timestamp")
	ErrEmptyPrimarySeries = errors.New("plot: empty primary series")
	ErrDegenerateInterval = errors.New("plot: degenerate interpolation interval")
	ErrInvalidThresholds  = errors.New("plot: invalid thresholds")
	ErrUnsortedInput      = errors.New("plot: unsorted input")
)

// IsInputError reports whether err was caused by the data or thresholds handed
// to the engine rather than by an infrastructure failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidTimestamp) ||
		errors.Is(err, ErrEmptyPrimarySeries) ||
		errors.Is(err, ErrDegenerateInterval) ||
		errors.Is(err, ErrInvalidThresholds) ||
		errors.Is(err, ErrUnsortedInput)
}
