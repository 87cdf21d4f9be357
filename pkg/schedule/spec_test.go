package schedule

import (
	"testing"

	"github.com/jpopelka/dist-git-to-source-git/pkg/runner"
)

func TestSpecValidateDefaultsToReplace(t *testing.T) {
	spec := Spec{Name: "check-updates", Cron: "0 */3 * * *", Command: "dist2src"}
	if err := spec.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if spec.Policy != ReplaceConcurrent {
		t.Errorf("expected default policy Replace, got %s", spec.Policy)
	}
}

func TestSpecValidateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"missing name", Spec{Cron: "* * * * *", Command: "dist2src"}},
		{"missing command", Spec{Name: "x", Cron: "* * * * *"}},
		{"bad cron", Spec{Name: "x", Cron: "not-a-cron", Command: "dist2src"}},
		{"bad policy", Spec{Name: "x", Cron: "* * * * *", Command: "dist2src", Policy: "Sometimes"}},
		{"conflicting env source", Spec{
			Name: "x", Cron: "* * * * *", Command: "dist2src",
			EnvFrom: []EnvSource{{ConfigMapName: "cm", SecretName: "sec"}},
		}},
		{"bad resource quantity", Spec{
			Name: "x", Cron: "* * * * *", Command: "dist2src",
			Resources: runner.Resources{MemoryLimit: "768Mb"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := tt.spec
			if err := spec.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestMergeEnvLaterSourcesWin(t *testing.T) {
	sources := []EnvSource{
		{Literal: map[string]string{"D2S_WORKDIR": "/workdir", "D2S_DIST_GIT_HOST": "git.centos.org"}},
		{ConfigMapName: "common-env"},
		{Literal: map[string]string{"D2S_DIST_GIT_HOST": "git.stg.centos.org"}},
	}

	merged := MergeEnv(sources)
	if merged["D2S_WORKDIR"] != "/workdir" {
		t.Errorf("expected D2S_WORKDIR preserved, got %q", merged["D2S_WORKDIR"])
	}
	if merged["D2S_DIST_GIT_HOST"] != "git.stg.centos.org" {
		t.Errorf("later source should win, got %q", merged["D2S_DIST_GIT_HOST"])
	}
}

func TestMergeEnvEmpty(t *testing.T) {
	if merged := MergeEnv(nil); merged != nil {
		t.Errorf("expected nil for no sources, got %v", merged)
	}
}

func TestEnvFromRefsPreservesOrder(t *testing.T) {
	sources := []EnvSource{
		{ConfigMapName: "common-env"},
		{Literal: map[string]string{"A": "1"}},
		{SecretName: "tokens", Optional: true},
	}

	refs := EnvFromRefs(sources)
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].ConfigMapName != "common-env" {
		t.Errorf("expected config map ref first, got %+v", refs[0])
	}
	if refs[1].SecretName != "tokens" || !refs[1].Optional {
		t.Errorf("expected optional secret ref second, got %+v", refs[1])
	}
}
