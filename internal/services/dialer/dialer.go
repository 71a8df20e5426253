// Package dialer places outbound calls through a telephony provider's REST
// API. Dial failures are surfaced as typed errors and never retried; outbound
// calling is operator-triggered and a human re-triggers on failure.
package dialer

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoDestination is returned when neither the request nor the configuration
// provides a destination number.
var ErrNoDestination = errors.New("no target phone number provided")

// Dialer originates one outbound call and returns the provider-issued request
// identifier. That identifier is not guaranteed to equal the CallUUID later
// delivered on the answer webhook; callers must not correlate the two.
type Dialer interface {
	Dial(ctx context.Context, to, from string) (string, error)
}

// TriggerError wraps any transport error or non-success API response from the
// provider's call-creation endpoint.
type TriggerError struct {
	Provider string
	Message  string
	Err      error
}

func (e *TriggerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s call trigger failed: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s call trigger failed: %s", e.Provider, e.Message)
}

func (e *TriggerError) Unwrap() error {
	return e.Err
}
