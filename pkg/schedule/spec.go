// Package schedule fires the recurring check-updates action on a cron
// calendar and enforces the spec's concurrency policy across firings.
package schedule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/jpopelka/dist-git-to-source-git/pkg/runner"
)

// ConcurrencyPolicy governs what happens when a firing occurs while a
// previous run is still active.
type ConcurrencyPolicy string

const (
	// AllowConcurrent starts a new run unconditionally.
	AllowConcurrent ConcurrencyPolicy = "Allow"
	// ForbidConcurrent skips the firing if a run is still active.
	ForbidConcurrent ConcurrencyPolicy = "Forbid"
	// ReplaceConcurrent terminates the active run and starts a new one.
	ReplaceConcurrent ConcurrencyPolicy = "Replace"
)

// Valid reports whether p is one of the three known policies.
func (p ConcurrencyPolicy) Valid() bool {
	switch p {
	case AllowConcurrent, ForbidConcurrent, ReplaceConcurrent:
		return true
	}
	return false
}

// EnvSource is one entry in the ordered environment-source list of a spec.
// Either a named config map / secret reference resolved by the execution
// environment, or a literal key/value map merged client-side.
type EnvSource struct {
	ConfigMapName string            `mapstructure:"configMap"`
	SecretName    string            `mapstructure:"secret"`
	Optional      bool              `mapstructure:"optional"`
	Literal       map[string]string `mapstructure:"literal"`
}

// Spec describes one recurring unit of work.
type Spec struct {
	Name string `mapstructure:"name"`
	// Cron is a five-field cron expression (minute hour dom month dow).
	Cron    string            `mapstructure:"cron"`
	Policy  ConcurrencyPolicy `mapstructure:"concurrencyPolicy"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	// EnvFrom is ordered; later sources override earlier ones on key collision.
	EnvFrom   []EnvSource      `mapstructure:"envFrom"`
	Resources runner.Resources `mapstructure:"resources"`
}

// cronParser accepts standard five-field expressions plus descriptors
// like @hourly, matching what the deployment manifests use.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseCron validates a five-field cron expression.
func ParseCron(expr string) (cron.Schedule, error) {
	return cronParser.Parse(expr)
}

// Validate checks the spec for use by the Scheduler. The default policy,
// matching the deployment manifests, is Replace.
func (s *Spec) Validate() error {
	var errs []string

	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, "name is required")
	}
	if s.Command == "" {
		errs = append(errs, "command is required")
	}
	if _, err := ParseCron(s.Cron); err != nil {
		errs = append(errs, fmt.Sprintf("invalid cron expression %q: %v", s.Cron, err))
	}
	if s.Policy == "" {
		s.Policy = ReplaceConcurrent
	}
	if !s.Policy.Valid() {
		errs = append(errs, fmt.Sprintf("unknown concurrency policy %q", s.Policy))
	}
	for i, src := range s.EnvFrom {
		if src.ConfigMapName != "" && src.SecretName != "" {
			errs = append(errs, fmt.Sprintf("envFrom[%d]: configMap and secret are mutually exclusive", i))
		}
	}
	if err := s.Resources.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("resources: %v", err))
	}

	if len(errs) > 0 {
		return errors.New("invalid schedule spec: " + strings.Join(errs, "; "))
	}
	return nil
}
