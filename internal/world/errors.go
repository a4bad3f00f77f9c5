package world

import (
	"errors"
	"fmt"
)

var (
	// ErrLocked indicates a mutation or step attempted from inside a step callback.
	ErrLocked = errors.New("world: locked during step")

	// ErrInvalidDt indicates a non-positive or non-finite step size.
	ErrInvalidDt = errors.New("world: invalid time step")

	ErrBodyInWorld     = errors.New("world: body already in a world")
	ErrBodyNotInWorld  = errors.New("world: body not in this world")
	ErrJointInWorld    = errors.New("world: joint already in this world")
	ErrJointNotInWorld = errors.New("world: joint not in this world")

	// ErrJointBodies indicates a joint whose bodies are not both in the world.
	ErrJointBodies = errors.New("world: joint bodies not in this world")
)

// WorldError wraps an error with the step it happened on.
type WorldError struct {
	Op   string
	Step int
	Time float64
	Err  error
}

func (e *WorldError) Error() string {
	return fmt.Sprintf("world: %s at step %d (t=%.4f): %v", e.Op, e.Step, e.Time, e.Err)
}

func (e *WorldError) Unwrap() error {
	return e.Err
}

func (w *World) fail(op string, err error) error {
	return &WorldError{Op: op, Step: w.steps, Time: w.time, Err: err}
}
