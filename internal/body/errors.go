package body

import "errors"

var (
	// ErrShapeAttached indicates adding a shape that already belongs to a body.
	ErrShapeAttached = errors.New("body: shape already attached")

	// ErrShapeNotAttached indicates removing a shape from a body it is not on.
	ErrShapeNotAttached = errors.New("body: shape not attached to this body")

	// ErrNilGeometry indicates a shape built without geometry.
	ErrNilGeometry = errors.New("body: shape has no geometry")
)
