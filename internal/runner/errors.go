package runner

import (
	"context"
	"errors"
	"fmt"
)

// CheckerExecutionError reports a checker that returned an error, panicked
// or ran past its timeout instead of reporting failures.
type CheckerExecutionError struct {
	Checker string
	Attempt int
	Err     error
	// Panic holds the recovered value when the checker panicked.
	Panic any
	Stack []byte
}

func (e *CheckerExecutionError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("checker %q panicked on attempt %d: %v", e.Checker, e.Attempt, e.Panic)
	}
	return fmt.Sprintf("checker %q failed on attempt %d: %v", e.Checker, e.Attempt, e.Err)
}

func (e *CheckerExecutionError) Unwrap() error { return e.Err }

// TimedOut reports whether the checker exceeded its run timeout.
func (e *CheckerExecutionError) TimedOut() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Detail returns the text stored on the errored run: the message plus the
// stack trace when the checker panicked.
func (e *CheckerExecutionError) Detail() string {
	if len(e.Stack) == 0 {
		return e.Error()
	}
	return e.Error() + "\n\n" + string(e.Stack)
}

// SinkDeliveryError reports a failure the sink could not deliver.
type SinkDeliveryError struct {
	Checker string
	Failure string
	Err     error
}

func (e *SinkDeliveryError) Error() string {
	return fmt.Sprintf("delivering failure %q of checker %q: %v", e.Failure, e.Checker, e.Err)
}

func (e *SinkDeliveryError) Unwrap() error { return e.Err }
