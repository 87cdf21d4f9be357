// Package runner executes the check-updates action against an execution
// backend (Kubernetes Jobs in deployments, local processes in development).
package runner

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/api/resource"
)

// RunStatus represents the execution state of a run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
	// RunStatusReplaced marks a run terminated because a newer firing
	// superseded it. Backends never report it; the scheduler records it.
	RunStatusReplaced RunStatus = "replaced"
)

// Terminal reports whether a status is final.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCancelled, RunStatusReplaced:
		return true
	}
	return false
}

// EnvFromSource references a named config map or secret whose entries are
// injected into the run's environment by the execution environment.
// Exactly one of ConfigMapName/SecretName is set.
type EnvFromSource struct {
	ConfigMapName string
	SecretName    string
	Optional      bool
}

// Resources is the limit tuple handed to the execution environment.
// Values are Kubernetes quantity strings ("768Mi", "400m"); empty means unset.
type Resources struct {
	MemoryLimit   string
	CPULimit      string
	MemoryRequest string
	CPURequest    string
}

// Validate checks that every set quantity string parses. Quantities come
// from the schedule config file, so they must be rejected at load time,
// not at firing time.
func (r Resources) Validate() error {
	for _, q := range []struct {
		name  string
		value string
	}{
		{"memoryLimit", r.MemoryLimit},
		{"cpuLimit", r.CPULimit},
		{"memoryRequest", r.MemoryRequest},
		{"cpuRequest", r.CPURequest},
	} {
		if q.value == "" {
			continue
		}
		if _, err := resource.ParseQuantity(q.value); err != nil {
			return fmt.Errorf("%s: invalid quantity %q: %v", q.name, q.value, err)
		}
	}
	return nil
}

// JobSpec defines the specification for a job to be run
type JobSpec struct {
	ID        string            // Optional: if empty, a new ID will be generated
	Name      string            // Human-readable name for the job
	Command   string            // Command to execute
	Args      []string          // Command arguments
	Env       map[string]string // Literal environment variables (already merged)
	EnvFrom   []EnvFromSource   // Config map / secret references, in order
	Image     string            // Container image (for the k8s backend)
	Resources Resources
}

// Run represents an execution of a job
type Run struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Status     RunStatus         `json:"status"`
	Command    string            `json:"command"`
	Args       []string          `json:"args,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	ExitCode   *int              `json:"exit_code,omitempty"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Runner defines the interface for executing jobs
type Runner interface {
	// Submit submits a new job for execution
	Submit(ctx context.Context, spec JobSpec) (*Run, error)

	// GetRun retrieves the current status of a run
	GetRun(ctx context.Context, runID string) (*Run, error)

	// Wait blocks until a run reaches a terminal status
	Wait(ctx context.Context, runID string) (*Run, error)

	// Cancel terminates a running job. Best-effort: the job may already
	// be gone or may outlive the call briefly.
	Cancel(ctx context.Context, runID string) error
}
