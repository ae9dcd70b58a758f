package fresnel

import (
	"errors"
	"fmt"
)

// Errors returned by the ring solver, the rasterizer and the wavefront operations.
// They are wrapped with the offending values; test with errors.Is.
var (
	ErrInvalidSpec        = errors.New("invalid zone plate parameters")
	ErrDegenerateGeometry = errors.New("degenerate ring geometry")
	ErrInvalidSize        = errors.New("invalid grid size")
	ErrInvalidDistance    = errors.New("invalid propagation distance")
	ErrShapeMismatch      = errors.New("mask and wavefront sizes differ")
	ErrInvalidAngle       = errors.New("invalid source angle")
	ErrUnknownBackend     = errors.New("unknown fft backend")
)

// checkSize enforces the even, positive grid sizes required by the quadrant scan.
func checkSize(size int) error {
	if size <= 0 || size%2 != 0 {
		return fmt.Errorf("%w: %d (must be an even number greater than zero)", ErrInvalidSize, size)
	}
	return nil
}
