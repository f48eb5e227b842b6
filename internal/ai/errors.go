package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited means the provider (or the local request budget) refused the call.
	ErrRateLimited = errors.New("ai provider rate limited")
	// ErrProvider covers transport and provider-side failures other than rate limiting.
	ErrProvider = errors.New("ai provider error")
	// ErrMalformedOutput means the response did not contain the expected JSON.
	ErrMalformedOutput = errors.New("ai returned malformed output")
	// ErrDisabled is returned by the Disabled generator.
	ErrDisabled = errors.New("ai is not configured")
)

// MalformedOutputError carries the raw model text for diagnosis.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", ErrMalformedOutput, e.Err)
	}
	return ErrMalformedOutput.Error()
}

func (e *MalformedOutputError) Is(target error) bool {
	return target == ErrMalformedOutput
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}

// Kind names the failure class of err for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrMalformedOutput):
		return "malformed_output"
	default:
		return "provider"
	}
}
