package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/ptr"
)

// LocalRunner executes runs as local processes. Development backend;
// EnvFrom references and resource limits are ignored (no execution
// environment to delegate them to).
type LocalRunner struct {
	mu   sync.Mutex
	runs map[string]*localRun
}

type localRun struct {
	run  *Run
	cmd  *exec.Cmd
	done chan struct{}
}

// NewLocalRunner creates a local process runner.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{
		runs: make(map[string]*localRun),
	}
}

// Submit starts the command as a local process.
func (r *LocalRunner) Submit(ctx context.Context, spec JobSpec) (*Run, error) {
	runID := spec.ID
	if runID == "" {
		runID = uuid.New().String()
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Env = os.Environ()
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", spec.Command, err)
	}

	now := time.Now()
	lr := &localRun{
		run: &Run{
			ID:        runID,
			Name:      spec.Name,
			Status:    RunStatusRunning,
			Command:   spec.Command,
			Args:      spec.Args,
			CreatedAt: now,
			StartedAt: &now,
		},
		cmd:  cmd,
		done: make(chan struct{}),
	}

	r.mu.Lock()
	r.runs[runID] = lr
	r.mu.Unlock()

	go r.reap(lr)

	return r.snapshot(lr), nil
}

// reap waits for process exit and records the terminal state.
func (r *LocalRunner) reap(lr *localRun) {
	err := lr.cmd.Wait()
	finished := time.Now()

	r.mu.Lock()
	lr.run.FinishedAt = &finished
	if exitErr, ok := err.(*exec.ExitError); ok {
		lr.run.Status = RunStatusFailed
		lr.run.ExitCode = ptr.To(exitErr.ExitCode())
		lr.run.Error = exitErr.Error()
	} else if err != nil {
		lr.run.Status = RunStatusFailed
		lr.run.Error = err.Error()
	} else {
		lr.run.Status = RunStatusSucceeded
		lr.run.ExitCode = ptr.To(0)
	}
	r.mu.Unlock()

	close(lr.done)
}

// GetRun retrieves the current status of a run.
func (r *LocalRunner) GetRun(ctx context.Context, runID string) (*Run, error) {
	r.mu.Lock()
	lr, ok := r.runs[runID]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return r.snapshot(lr), nil
}

// Wait blocks until the process exits.
func (r *LocalRunner) Wait(ctx context.Context, runID string) (*Run, error) {
	r.mu.Lock()
	lr, ok := r.runs[runID]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-lr.done:
		final := r.snapshot(lr)
		// The terminal state has been handed to the caller; drop the
		// bookkeeping entry so long-lived processes don't accumulate one
		// per firing.
		r.mu.Lock()
		delete(r.runs, runID)
		r.mu.Unlock()
		return final, nil
	}
}

// Cancel kills the process. The reap goroutine records the terminal state.
func (r *LocalRunner) Cancel(ctx context.Context, runID string) error {
	r.mu.Lock()
	lr, ok := r.runs[runID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}

	select {
	case <-lr.done:
		return nil // already finished
	default:
	}
	return lr.cmd.Process.Kill()
}

// snapshot copies the run under the lock so callers never see a
// half-written update from reap.
func (r *LocalRunner) snapshot(lr *localRun) *Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *lr.run
	return &cp
}

var _ Runner = (*LocalRunner)(nil)
