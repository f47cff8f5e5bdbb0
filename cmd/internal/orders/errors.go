package orders

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")

	// ErrInvalidInput is returned for malformed or incomplete inputs.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIllegalTransition is returned when a status change is not in the
	// allowed-edge table. It is a client error (400), never retried and never
	// coerced to the nearest legal state.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrUnknownCommand is returned when a command cannot be resolved to a
	// target status.
	ErrUnknownCommand = errors.New("unknown order command")
)

// IllegalTransitionError reports the rejected edge.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e IllegalTransitionError) Error() string {
	return fmt.Sprintf("%v: %s -> %s", ErrIllegalTransition, e.From, e.To)
}

func (e IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidInput reports whether err represents ErrInvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsIllegalTransition reports whether err represents ErrIllegalTransition.
func IsIllegalTransition(err error) bool { return errors.Is(err, ErrIllegalTransition) }

// IsUnknownCommand reports whether err represents ErrUnknownCommand.
func IsUnknownCommand(err error) bool { return errors.Is(err, ErrUnknownCommand) }
