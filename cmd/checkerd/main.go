package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess        = 0 // Every checker succeeded
	ExitCheckerFailure = 1 // One or more checkers failed or errored
	ExitError          = 2 // Configuration or runtime error
)

// CheckerFailureError indicates that checkers ran, but one or more of them
// reported failures or errored.
type CheckerFailureError struct {
	Message string
}

func (e *CheckerFailureError) Error() string {
	return e.Message
}

func main() {
	os.Exit(exitCode(execute()))
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintln(os.Stderr, err)

	var failureErr *CheckerFailureError
	if errors.As(err, &failureErr) {
		return ExitCheckerFailure
	}
	// All other errors are configuration/runtime errors
	return ExitError
}
