package exitcodes

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Standard exit codes for thrive-launcher
const (
	// Success indicates successful command completion
	Success = 0

	// GeneralError indicates a general/unknown error
	GeneralError = 1

	// InvalidArgs indicates invalid command-line arguments or flags
	InvalidArgs = 2

	// PreconditionFailed indicates a precondition was not met
	// (e.g., version not installed, missing external tool)
	PreconditionFailed = 3

	// NetworkError indicates network/connectivity failure
	// (e.g., mirror unreachable, DevCenter timeout)
	NetworkError = 4

	// DownloadFailed indicates a download or hash verification failure
	DownloadFailed = 5

	// ExtractionFailed indicates the archive could not be unpacked
	ExtractionFailed = 6

	// RehydrationFailed indicates dehydrated content could not be rebuilt
	RehydrationFailed = 7

	// ProcessError indicates the game process could not be started
	ProcessError = 8

	// ValidationError indicates validation failure
	// (e.g., invalid signature, malformed manifest)
	ValidationError = 9

	// Cancelled indicates the user interrupted the operation
	Cancelled = 130
)

// Exit terminates the program with the given code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError prints error message to stderr and exits with the given code
func ExitWithError(code int, msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}

// ExitWithErrorf prints formatted error message to stderr and exits
func ExitWithErrorf(code int, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}

// CodeForError returns the appropriate exit code for an error.
// Unwraps ErrorWithCode for explicit codes; context cancellation maps to
// Cancelled so interrupted pipelines are never reported as failures.
func CodeForError(err error) int {
	if err == nil {
		return Success
	}

	var ec *ErrorWithCode
	if errors.As(err, &ec) {
		return ec.Code
	}

	if errors.Is(err, context.Canceled) {
		return Cancelled
	}

	return GeneralError
}
