package readiness

import (
	"context"
	"fmt"
	"time"

	"github.com/jpopelka/dist-git-to-source-git/pkg/d2slog"
)

// NoMatchError is returned when no instance matches the selector.
type NoMatchError struct {
	Namespace string
	Selector  string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no pods matching %q found in namespace %q", e.Selector, e.Namespace)
}

// PhaseMismatchError is returned when the inspected instance is in a
// different phase than expected.
type PhaseMismatchError struct {
	Instance string
	Got      string
	Want     string
}

func (e *PhaseMismatchError) Error() string {
	return fmt.Sprintf("pod %s is in phase %q, expected %q", e.Instance, e.Got, e.Want)
}

// CheckReady is a single-shot readiness check: it queries instances
// matching selector in namespace and asserts that the FIRST instance, in
// the order the source returns them, is in expectedPhase. The comparison
// is case-sensitive string equality. Callers wanting polling wrap this in
// WaitReady.
func CheckReady(ctx context.Context, source WorkloadStatusSource, namespace, selector, expectedPhase string) error {
	instances, err := source.ListInstances(ctx, namespace, selector)
	if err != nil {
		return err
	}
	if len(instances) == 0 {
		return &NoMatchError{Namespace: namespace, Selector: selector}
	}

	first := instances[0]
	if first.Phase != expectedPhase {
		return &PhaseMismatchError{Instance: first.Name, Got: first.Phase, Want: expectedPhase}
	}
	return nil
}

// WaitReady retries CheckReady up to attempts times, sleeping interval
// between attempts. It returns nil on the first pass, or the last
// failure once the budget is exhausted.
func WaitReady(ctx context.Context, source WorkloadStatusSource, namespace, selector, expectedPhase string, attempts int, interval time.Duration, log *d2slog.Logger) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}

		err = CheckReady(ctx, source, namespace, selector, expectedPhase)
		if err == nil {
			return nil
		}
		if log != nil {
			log.Debug("readiness check failed",
				"attempt", i+1, "attempts", attempts, "err", err.Error())
		}
	}
	return err
}
