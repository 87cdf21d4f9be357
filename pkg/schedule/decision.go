package schedule

import (
	"time"

	"github.com/jpopelka/dist-git-to-source-git/pkg/runner"
)

// Decision is the outcome of applying a spec's concurrency policy to a firing.
type Decision int

const (
	// DecisionStart submits a new run; no active predecessor to consider.
	DecisionStart Decision = iota
	// DecisionSkip drops the firing because a run is still active.
	DecisionSkip
	// DecisionReplace terminates the active run, then submits a new one.
	DecisionReplace
)

func (d Decision) String() string {
	switch d {
	case DecisionStart:
		return "start"
	case DecisionSkip:
		return "skip"
	case DecisionReplace:
		return "replace"
	}
	return "unknown"
}

// Decide applies the spec's concurrency policy to a firing at now, given
// the most recent run (nil if none). Pure: no clock, no I/O, so policy
// behavior is testable without real time passing. Only a live predecessor
// triggers Skip or Replace; terminal runs never block a firing.
func Decide(now time.Time, spec Spec, active *runner.Run) Decision {
	_ = now // part of the contract; current policies depend only on liveness

	if active == nil || active.Status.Terminal() {
		return DecisionStart
	}

	switch spec.Policy {
	case ForbidConcurrent:
		return DecisionSkip
	case ReplaceConcurrent:
		return DecisionReplace
	default: // AllowConcurrent
		return DecisionStart
	}
}
