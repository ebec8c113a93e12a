package arena

import "errors"

// Error definitions
var (
	// ErrNilRegion is returned when the caller passes an empty region.
	ErrNilRegion = errors.New("nil or empty region")
	// ErrRegionTooSmall is returned when the region cannot hold the control
	// block and a minimal heap.
	ErrRegionTooSmall = errors.New("region too small")
	// ErrInvalidAlgorithm is returned for an unknown algorithm tag.
	ErrInvalidAlgorithm = errors.New("invalid algorithm")
	// ErrNoSpaceAvailable is returned when a platform backing cannot be obtained.
	ErrNoSpaceAvailable = errors.New("no space available")
)
