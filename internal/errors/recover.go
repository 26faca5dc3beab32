package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError wraps a recovered panic. The stack is kept for logging and
// left out of Error() so the message can be shown to a model verbatim.
type PanicError struct {
	Value      any    // Panic value
	StackTrace string // Stack trace at panic
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// SafeGo runs fn in a goroutine. A returned error or a recovered panic is
// sent to errChan without blocking.
func SafeGo(fn func() error, errChan chan<- error) {
	go func() {
		err := Recover(fn)
		if err == nil {
			return
		}
		select {
		case errChan <- err:
		default:
		}
	}()
}

// Recover runs fn and converts a panic into a PanicError
func Recover(fn func() error) (err error) {
	_, err = RecoverWithResult(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RecoverWithResult runs fn and converts a panic into a PanicError
func RecoverWithResult[T any](fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = &PanicError{
				Value:      r,
				StackTrace: string(debug.Stack()),
			}
		}
	}()
	return fn()
}
