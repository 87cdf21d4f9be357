package schedule

import (
	"testing"
	"time"

	"github.com/jpopelka/dist-git-to-source-git/pkg/runner"
)

func TestDecide(t *testing.T) {
	now := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
	activeRun := &runner.Run{ID: "run-1", Status: runner.RunStatusRunning}
	finishedRun := &runner.Run{ID: "run-1", Status: runner.RunStatusSucceeded}

	tests := []struct {
		name     string
		policy   ConcurrencyPolicy
		active   *runner.Run
		expected Decision
	}{
		{"no previous run", ReplaceConcurrent, nil, DecisionStart},
		{"previous run finished", ReplaceConcurrent, finishedRun, DecisionStart},
		{"replace with active run", ReplaceConcurrent, activeRun, DecisionReplace},
		{"forbid with active run", ForbidConcurrent, activeRun, DecisionSkip},
		{"forbid with finished run", ForbidConcurrent, finishedRun, DecisionStart},
		{"allow with active run", AllowConcurrent, activeRun, DecisionStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := Spec{Name: "check-updates", Cron: "*/10 * * * *", Policy: tt.policy}
			got := Decide(now, spec, tt.active)
			if got != tt.expected {
				t.Errorf("Decide() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestDecideTreatsFailedRunAsFinished(t *testing.T) {
	spec := Spec{Name: "check-updates", Policy: ForbidConcurrent}
	failed := &runner.Run{ID: "run-1", Status: runner.RunStatusFailed}

	if got := Decide(time.Now(), spec, failed); got != DecisionStart {
		t.Errorf("Decide() with failed predecessor = %s, want start", got)
	}
}
