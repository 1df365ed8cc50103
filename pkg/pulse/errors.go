package pulse

import (
	"errors"
	"fmt"
)

// ErrDisposed is returned when an operation targets a disposed application.
var ErrDisposed = errors.New("pulse: disposed")

// ErrPluginExists is returned by Application.Use when a plugin with the same
// name is already installed.
var ErrPluginExists = errors.New("pulse: plugin already installed")

// CallbackError describes a callback that panicked during dispatch.
type CallbackError struct {
	// Source names the primitive (and channel, for emitters) that was
	// dispatching when the panic happened.
	Source string

	// Recovered is the value passed to panic.
	Recovered any

	// Stack is the goroutine stack captured at recovery time.
	Stack []byte
}

// Error implements the error interface.
func (e *CallbackError) Error() string {
	return fmt.Sprintf("pulse: callback in %s panicked: %v", e.Source, e.Recovered)
}

// Unwrap returns the recovered value when it is an error.
func (e *CallbackError) Unwrap() error {
	if err, ok := e.Recovered.(error); ok {
		return err
	}
	return nil
}
