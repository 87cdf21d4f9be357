package readiness

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeSource returns scripted instance lists, one per call.
type fakeSource struct {
	results [][]Instance
	err     error
	calls   int
}

func (f *fakeSource) ListInstances(_ context.Context, _, _ string) ([]Instance, error) {
	if f.err != nil {
		return nil, f.err
	}
	idx := f.calls
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	f.calls++
	return f.results[idx], nil
}

func TestCheckReadySuccess(t *testing.T) {
	source := &fakeSource{results: [][]Instance{
		{{Name: "dist2src-update-1-abcde", Phase: "Running"}},
	}}

	err := CheckReady(context.Background(), source, "d2s", "name=dist2src-updater", "Running")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestCheckReadyNoMatch(t *testing.T) {
	source := &fakeSource{results: [][]Instance{{}}}

	err := CheckReady(context.Background(), source, "d2s", "name=dist2src-updater", "Running")
	var noMatch *NoMatchError
	if !errors.As(err, &noMatch) {
		t.Fatalf("expected NoMatchError, got %v", err)
	}
	if noMatch.Selector != "name=dist2src-updater" || noMatch.Namespace != "d2s" {
		t.Errorf("error should carry selector and namespace: %+v", noMatch)
	}
}

func TestCheckReadyNoMatchRegardlessOfPhase(t *testing.T) {
	for _, phase := range []string{"Running", "Pending", ""} {
		source := &fakeSource{results: [][]Instance{{}}}
		err := CheckReady(context.Background(), source, "d2s", "app=x", phase)
		var noMatch *NoMatchError
		if !errors.As(err, &noMatch) {
			t.Errorf("phase %q: expected NoMatchError, got %v", phase, err)
		}
	}
}

func TestCheckReadyPhaseMismatch(t *testing.T) {
	source := &fakeSource{results: [][]Instance{
		{{Name: "dist2src-update-1-abcde", Phase: "Pending"}},
	}}

	err := CheckReady(context.Background(), source, "d2s", "name=dist2src-updater", "Running")
	var mismatch *PhaseMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected PhaseMismatchError, got %v", err)
	}
	if mismatch.Got != "Pending" || mismatch.Want != "Running" {
		t.Errorf("expected got=Pending want=Running, got %+v", mismatch)
	}
}

func TestCheckReadyPhaseComparisonIsCaseSensitive(t *testing.T) {
	source := &fakeSource{results: [][]Instance{
		{{Name: "pod-1", Phase: "Running"}},
	}}

	err := CheckReady(context.Background(), source, "d2s", "app=x", "running")
	var mismatch *PhaseMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected PhaseMismatchError for case difference, got %v", err)
	}
}

func TestCheckReadyInspectsFirstInstanceOnly(t *testing.T) {
	source := &fakeSource{results: [][]Instance{
		{
			{Name: "pod-1", Phase: "Pending"},
			{Name: "pod-2", Phase: "Running"},
		},
	}}

	err := CheckReady(context.Background(), source, "d2s", "app=x", "Running")
	var mismatch *PhaseMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected PhaseMismatchError from first instance, got %v", err)
	}
	if mismatch.Instance != "pod-1" {
		t.Errorf("expected pod-1 inspected, got %s", mismatch.Instance)
	}
}

func TestCheckReadyPropagatesSourceError(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}

	err := CheckReady(context.Background(), source, "d2s", "app=x", "Running")
	if err == nil || err.Error() != "connection refused" {
		t.Fatalf("expected source error passed through, got %v", err)
	}
}

func TestWaitReadyRetriesUntilReady(t *testing.T) {
	source := &fakeSource{results: [][]Instance{
		{{Name: "pod-1", Phase: "Pending"}},
		{{Name: "pod-1", Phase: "Pending"}},
		{{Name: "pod-1", Phase: "Running"}},
	}}

	err := WaitReady(context.Background(), source, "d2s", "app=x", "Running", 5, time.Millisecond, nil)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if source.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", source.calls)
	}
}

func TestWaitReadyExhaustsBudget(t *testing.T) {
	source := &fakeSource{results: [][]Instance{
		{{Name: "pod-1", Phase: "Pending"}},
	}}

	err := WaitReady(context.Background(), source, "d2s", "app=x", "Running", 3, time.Millisecond, nil)
	var mismatch *PhaseMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected final PhaseMismatchError, got %v", err)
	}
	if source.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", source.calls)
	}
}

func TestWaitReadyHonorsContextCancellation(t *testing.T) {
	source := &fakeSource{results: [][]Instance{
		{{Name: "pod-1", Phase: "Pending"}},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitReady(ctx, source, "d2s", "app=x", "Running", 10, time.Minute, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
