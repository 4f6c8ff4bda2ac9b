package calc

import "errors"

var (
	// ErrInsufficientSamples is returned when a segment has fewer than two samples.
	ErrInsufficientSamples = errors.New("insufficient samples")

	// ErrDegenerateColumn marks a region whose signal has zero or non-finite
	// variance in a segment. It is never returned by Pearson; callers wrap it in warnings.
	ErrDegenerateColumn = errors.New("degenerate column")

	// ErrSingleRegion is returned when fewer than two regions are given.
	ErrSingleRegion = errors.New("single region")
)
