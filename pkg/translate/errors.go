package translate

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidMethod is returned for a method outside the Method enum.
	ErrInvalidMethod = errors.New("invalid translation method")
	// ErrEmptyText is returned when there is nothing to translate.
	ErrEmptyText = errors.New("no text provided for translation")
	// ErrModelUnavailable is returned when required model files are missing.
	ErrModelUnavailable = errors.New("model not available")
	// ErrModelNotFound is returned when the model directory does not exist.
	ErrModelNotFound = errors.New("model folder not found")
	// ErrGeneratorUnavailable is returned when no remote generator is configured.
	ErrGeneratorUnavailable = errors.New("generative API not configured")
)

// SpawnError reports that the interpreter process could not be started.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start Python process: %v", e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ProcessError reports a non-zero exit of the interpreter process.
type ProcessError struct {
	Prefix   string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	detail := e.Stderr
	if detail == "" {
		detail = "Unknown error"
	}
	return fmt.Sprintf("%s: %s", e.Prefix, detail)
}

// ModelError reports a failure the generated program caught and printed.
// Its message is the program output verbatim.
type ModelError struct {
	Output string
}

func (e *ModelError) Error() string { return e.Output }

// AbortedError reports a run stopped by its deadline or by cancellation.
type AbortedError struct {
	Engine string
	Err    error
}

func (e *AbortedError) Error() string {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s translation timed out: %v", e.Engine, e.Err)
	}
	return fmt.Sprintf("%s translation aborted: %v", e.Engine, e.Err)
}

func (e *AbortedError) Unwrap() error { return e.Err }

// IsValidation reports whether err was caused by bad caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidMethod) || errors.Is(err, ErrEmptyText)
}

// IsPrecondition reports whether err was raised before any process was started
// because the model is not installed.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrModelNotFound)
}

// IsTimeout reports whether err is a run that hit its deadline.
func IsTimeout(err error) bool {
	var aborted *AbortedError
	return errors.As(err, &aborted) && errors.Is(aborted.Err, context.DeadlineExceeded)
}
