package forkjoin

import (
	"errors"
	"fmt"
)

// PanicError reports a panic recovered while a batch of work was executing.
// It unwraps to ErrWorkerPanicked, and to the panic value itself when that value is an error.
type PanicError struct {
	// Value is the value passed to panic.
	Value any
	// Start and End delimit the batch, or the sort partition, that was running.
	Start, End int
	// Stack is the stack trace of the panicking goroutine.
	Stack []byte
}

func newPanicError(value any, start, end int, stack []byte) *PanicError {
	return &PanicError{Value: value, Start: start, End: end, Stack: stack}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: %v", ErrWorkerPanicked.Error(), e.Value)
}

func (e *PanicError) Unwrap() []error {
	if err, ok := e.Value.(error); ok {
		return []error{ErrWorkerPanicked, err}
	}
	return []error{ErrWorkerPanicked}
}

func (e *PanicError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "batch[%d,%d): %s\n%s", e.Start, e.End, e.Error(), e.Stack)
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// ExtractBatchRange returns the batch range recorded in err, if err carries a PanicError.
func ExtractBatchRange(err error) (start, end int, ok bool) {
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe.Start, pe.End, true
	}
	return 0, 0, false
}
