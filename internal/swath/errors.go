package swath

import "errors"

var (
	// ErrShapeMismatch is returned when the arrays of a granule do not share one shape.
	ErrShapeMismatch = errors.New("grid arrays have mismatched shapes")

	// ErrEmptyGrid is returned when a grid has no scanlines or no pixels.
	ErrEmptyGrid = errors.New("grid has no scanlines or pixels")

	// ErrRowOutOfRange is returned when a scanline index has no successor in the time array.
	ErrRowOutOfRange = errors.New("scanline index out of range")

	// ErrInvalidPoint is returned when a point of interest is not a finite coordinate.
	ErrInvalidPoint = errors.New("invalid point of interest")

	// ErrDegenerateGeometry is returned when no interpolating triangle encloses the point.
	ErrDegenerateGeometry = errors.New("degenerate interpolation geometry")
)
