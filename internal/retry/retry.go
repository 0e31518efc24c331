// Package retry wraps calls to external services (script generation,
// narration synthesis) in a bounded retry-with-backoff policy. These are the
// only suspension points of a pipeline run.
package retry

import (
	"context"
	"fmt"
	"log"
	"time"
)

type Policy struct {
	Attempts int           // total attempts, at least 1
	Delay    time.Duration // first backoff, doubled after each failure
}

// ExternalServiceError is returned once a policy is exhausted. It is fatal
// for the run: a slide with no narration or no script cannot be substituted.
type ExternalServiceError struct {
	Service  string
	Attempts int
	Err      error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Service, e.Attempts, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Do runs op until it succeeds, the policy is exhausted, or ctx is done.
func Do(ctx context.Context, p Policy, service string, op func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay <= 0 {
		delay = time.Second
	}

	var last error
	for i := 1; i <= attempts; i++ {
		if i > 1 {
			log.Printf("[!] %s attempt %d/%d failed: %v (retrying in %s)", service, i-1, attempts, last, delay)
			select {
			case <-ctx.Done():
				return &ExternalServiceError{Service: service, Attempts: i - 1, Err: ctx.Err()}
			case <-time.After(delay):
			}
			delay *= 2
		}
		if last = op(ctx); last == nil {
			return nil
		}
	}
	return &ExternalServiceError{Service: service, Attempts: attempts, Err: last}
}
