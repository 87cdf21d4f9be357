package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jpopelka/dist-git-to-source-git/pkg/d2slog"
	"github.com/jpopelka/dist-git-to-source-git/pkg/runner"
	"github.com/jpopelka/dist-git-to-source-git/pkg/runstore"
)

// entry is one registered spec plus its runtime state.
type entry struct {
	spec    Spec
	entryID cron.EntryID
	active  *runner.Run
}

// Scheduler fires registered specs on their cron calendar and applies
// each spec's concurrency policy. Run outcomes land in the store keyed
// by (spec name, start time).
type Scheduler struct {
	mu      sync.Mutex
	log     *d2slog.Logger
	runner  runner.Runner
	store   runstore.Store
	c       *cron.Cron
	entries map[string]*entry
}

// NewScheduler creates a scheduler over the given backend and store.
func NewScheduler(r runner.Runner, store runstore.Store, log *d2slog.Logger) *Scheduler {
	if log == nil {
		log = d2slog.NewDefault()
	}
	return &Scheduler{
		log:     log,
		runner:  r,
		store:   store,
		c:       cron.New(cron.WithParser(cronParser)),
		entries: make(map[string]*entry),
	}
}

// Register adds a spec. Registering the same name again replaces the
// previous definition (upsert, so config reloads don't duplicate firings).
func (s *Scheduler) Register(spec Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[spec.Name]; ok {
		s.c.Remove(prev.entryID)
	}

	e := &entry{spec: spec}
	id, err := s.c.AddFunc(spec.Cron, func() {
		s.fire(context.Background(), spec.Name)
	})
	if err != nil {
		return fmt.Errorf("registering schedule %s: %w", spec.Name, err)
	}
	e.entryID = id
	s.entries[spec.Name] = e

	s.log.Info("schedule registered",
		"name", spec.Name, "cron", spec.Cron, "policy", string(spec.Policy))
	return nil
}

// Start begins cron triggering.
func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop stops cron triggering and waits for in-flight firings to return.
// Submitted runs keep executing in their backend.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
	}
}

// Trigger fires a spec by name outside its calendar. Used by tests and
// the CLI's run-now path.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	_, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown schedule %q", name)
	}
	s.fire(ctx, name)
	return nil
}

// fire handles one firing of a named spec: refresh the predecessor's
// status, decide per policy, then submit/skip/replace accordingly.
func (s *Scheduler) fire(ctx context.Context, name string) {
	s.mu.Lock()
	e, ok := s.entries[name]
	if !ok {
		s.mu.Unlock()
		return
	}
	spec := e.spec
	active := e.active
	s.mu.Unlock()

	// The in-memory predecessor may have finished since we last looked.
	if active != nil && !active.Status.Terminal() {
		if refreshed, err := s.runner.GetRun(ctx, active.ID); err == nil {
			active = refreshed
		}
	}

	now := time.Now()
	switch Decide(now, spec, active) {
	case DecisionSkip:
		s.log.Info("firing skipped, previous run still active",
			"name", spec.Name, "run_id", active.ID)
		return

	case DecisionReplace:
		// Best-effort: the replacement starts regardless, without
		// waiting for termination confirmation.
		if err := s.runner.Cancel(ctx, active.ID); err != nil {
			s.log.Warn("terminating superseded run failed",
				"name", spec.Name, "run_id", active.ID, "err", err.Error())
		}
		s.recordReplaced(ctx, spec, active)
	}

	s.submit(ctx, e, spec, now)
}

// submit starts a new run and records it.
func (s *Scheduler) submit(ctx context.Context, e *entry, spec Spec, startedAt time.Time) {
	run, err := s.runner.Submit(ctx, runner.JobSpec{
		Name:      spec.Name,
		Command:   spec.Command,
		Args:      spec.Args,
		Env:       MergeEnv(spec.EnvFrom),
		EnvFrom:   EnvFromRefs(spec.EnvFrom),
		Resources: spec.Resources,
	})
	if err != nil {
		s.log.Error("submitting run failed", "name", spec.Name, "err", err.Error())
		return
	}

	s.mu.Lock()
	e.active = run
	s.mu.Unlock()

	rec := runstore.Record{
		SpecName:  spec.Name,
		RunID:     run.ID,
		Command:   spec.Command,
		Args:      spec.Args,
		StartedAt: startedAt,
		Status:    run.Status,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		s.log.Warn("saving run record failed", "name", spec.Name, "err", err.Error())
	}

	s.log.Info("run submitted", "name", spec.Name, "run_id", run.ID)
	go s.awaitRun(spec, run, startedAt)
}

// awaitRun waits for the run to finish and records the terminal status.
// A failed run is not rescheduled; the next attempt is the next firing.
func (s *Scheduler) awaitRun(spec Spec, run *runner.Run, startedAt time.Time) {
	final, err := s.runner.Wait(context.Background(), run.ID)
	if err != nil {
		s.log.Warn("waiting for run failed", "name", spec.Name, "run_id", run.ID, "err", err.Error())
		return
	}

	s.mu.Lock()
	if e, ok := s.entries[spec.Name]; ok && e.active != nil && e.active.ID == run.ID {
		e.active = final
	}
	s.mu.Unlock()

	status := final.Status
	if status == runner.RunStatusCancelled {
		// The scheduler is the only cancel source, and it cancels only
		// to replace.
		status = runner.RunStatusReplaced
	}

	rec := runstore.Record{
		SpecName:   spec.Name,
		RunID:      run.ID,
		Command:    spec.Command,
		Args:       spec.Args,
		StartedAt:  startedAt,
		FinishedAt: final.FinishedAt,
		Status:     status,
		ExitCode:   final.ExitCode,
		Message:    final.Error,
	}
	if err := s.store.Save(context.Background(), rec); err != nil {
		s.log.Warn("saving run record failed", "name", spec.Name, "err", err.Error())
	}

	s.log.Info("run finished", "name", spec.Name, "run_id", run.ID, "status", string(final.Status))
}

// recordReplaced marks the superseded run's record as replaced.
func (s *Scheduler) recordReplaced(ctx context.Context, spec Spec, old *runner.Run) {
	last, err := s.store.Last(ctx, spec.Name)
	if err != nil || last.RunID != old.ID {
		return
	}
	last.Status = runner.RunStatusReplaced
	if err := s.store.Save(ctx, *last); err != nil {
		s.log.Warn("marking run replaced failed", "name", spec.Name, "err", err.Error())
	}
}

// Active returns the most recent run for a spec known to the scheduler,
// or nil. Concurrency-safe snapshot.
func (s *Scheduler) Active(name string) *runner.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok || e.active == nil {
		return nil
	}
	cp := *e.active
	return &cp
}
