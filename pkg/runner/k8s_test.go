package runner

import (
	"context"
	"testing"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestK8sRunnerSubmitBuildsJob(t *testing.T) {
	client := fake.NewSimpleClientset()
	r := NewK8sRunner(client, "d2s", "quay.io/packit/dist2src:latest")

	run, err := r.Submit(context.Background(), JobSpec{
		Name:    "check-updates",
		Command: "dist2src",
		Args:    []string{"check-updates"},
		Env:     map[string]string{"D2S_DIST_GIT_HOST": "git.centos.org"},
		EnvFrom: []EnvFromSource{
			{ConfigMapName: "common-env"},
			{SecretName: "tokens", Optional: true},
		},
		Resources: Resources{MemoryLimit: "768Mi", CPULimit: "400m", MemoryRequest: "128Mi"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if run.ID == "" || run.Status != RunStatusPending {
		t.Fatalf("unexpected run: %+v", run)
	}

	jobs, err := client.BatchV1().Jobs("d2s").List(context.Background(), metav1.ListOptions{})
	if err != nil {
		t.Fatalf("listing jobs: %v", err)
	}
	if len(jobs.Items) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs.Items))
	}

	job := jobs.Items[0]
	if job.Labels[RunIDLabel] != run.ID {
		t.Errorf("job missing run-id label, got %v", job.Labels)
	}
	if *job.Spec.BackoffLimit != 0 {
		t.Errorf("expected backoffLimit 0 (no retry on failure), got %d", *job.Spec.BackoffLimit)
	}

	container := job.Spec.Template.Spec.Containers[0]
	if container.Command[0] != "dist2src" || container.Command[1] != "check-updates" {
		t.Errorf("unexpected command: %v", container.Command)
	}
	if len(container.EnvFrom) != 2 {
		t.Fatalf("expected 2 envFrom sources, got %d", len(container.EnvFrom))
	}
	if container.EnvFrom[0].ConfigMapRef == nil || container.EnvFrom[0].ConfigMapRef.Name != "common-env" {
		t.Errorf("expected config map ref first, got %+v", container.EnvFrom[0])
	}
	if container.EnvFrom[1].SecretRef == nil || !*container.EnvFrom[1].SecretRef.Optional {
		t.Errorf("expected optional secret ref second, got %+v", container.EnvFrom[1])
	}
	if container.Resources.Limits.Memory().String() != "768Mi" {
		t.Errorf("expected 768Mi memory limit, got %s", container.Resources.Limits.Memory())
	}
	if container.Resources.Requests.Memory().String() != "128Mi" {
		t.Errorf("expected 128Mi memory request, got %s", container.Resources.Requests.Memory())
	}
}

func TestK8sRunnerSubmitRejectsInvalidQuantity(t *testing.T) {
	client := fake.NewSimpleClientset()
	r := NewK8sRunner(client, "d2s", "img")

	// "Mb" is not a valid Kubernetes quantity suffix; a typo in the config
	// file must surface as an error, not take the daemon down.
	_, err := r.Submit(context.Background(), JobSpec{
		Name:      "check-updates",
		Command:   "dist2src",
		Resources: Resources{MemoryLimit: "768Mb"},
	})
	if err == nil {
		t.Fatal("expected error for invalid quantity")
	}

	jobs, _ := client.BatchV1().Jobs("d2s").List(context.Background(), metav1.ListOptions{})
	if len(jobs.Items) != 0 {
		t.Errorf("expected no job created, got %d", len(jobs.Items))
	}
}

func TestK8sRunnerSubmitShortRunID(t *testing.T) {
	client := fake.NewSimpleClientset()
	r := NewK8sRunner(client, "d2s", "img")

	run, err := r.Submit(context.Background(), JobSpec{
		ID:      "abc",
		Name:    "check-updates",
		Command: "dist2src",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if run.ID != "abc" {
		t.Errorf("expected caller-supplied ID preserved, got %q", run.ID)
	}
	if got := run.Metadata["k8s_job_name"]; got != "check-updates-abc" {
		t.Errorf("unexpected job name: %q", got)
	}
}

func TestK8sRunnerGetRunMapsConditions(t *testing.T) {
	client := fake.NewSimpleClientset()
	r := NewK8sRunner(client, "d2s", "quay.io/packit/dist2src:latest")
	ctx := context.Background()

	run, err := r.Submit(ctx, JobSpec{Name: "check-updates", Command: "dist2src"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	got, err := r.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != RunStatusPending {
		t.Errorf("expected pending before the job starts, got %s", got.Status)
	}

	// Mark the job complete and check the mapping.
	jobs, _ := client.BatchV1().Jobs("d2s").List(ctx, metav1.ListOptions{})
	job := jobs.Items[0]
	job.Status.Conditions = []batchv1.JobCondition{
		{Type: batchv1.JobComplete, Status: corev1.ConditionTrue, LastTransitionTime: metav1.Now()},
	}
	if _, err := client.BatchV1().Jobs("d2s").UpdateStatus(ctx, &job, metav1.UpdateOptions{}); err != nil {
		t.Fatalf("updating job status: %v", err)
	}

	got, err = r.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != RunStatusSucceeded {
		t.Errorf("expected succeeded, got %s", got.Status)
	}
	if got.FinishedAt == nil {
		t.Error("expected FinishedAt from the complete condition")
	}
}

func TestK8sRunnerGetRunNotFound(t *testing.T) {
	r := NewK8sRunner(fake.NewSimpleClientset(), "d2s", "img")
	if _, err := r.GetRun(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestK8sRunnerCancelDeletesJob(t *testing.T) {
	client := fake.NewSimpleClientset()
	r := NewK8sRunner(client, "d2s", "img")
	ctx := context.Background()

	run, err := r.Submit(ctx, JobSpec{Name: "check-updates", Command: "dist2src"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if err := r.Cancel(ctx, run.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	jobs, _ := client.BatchV1().Jobs("d2s").List(ctx, metav1.ListOptions{})
	if len(jobs.Items) != 0 {
		t.Errorf("expected job deleted, %d remain", len(jobs.Items))
	}
}

func TestJobStatusToRunStatus(t *testing.T) {
	tests := []struct {
		name     string
		job      *batchv1.Job
		expected RunStatus
	}{
		{
			"active job",
			&batchv1.Job{Status: batchv1.JobStatus{Active: 1}},
			RunStatusRunning,
		},
		{
			"failed job",
			&batchv1.Job{Status: batchv1.JobStatus{Conditions: []batchv1.JobCondition{
				{Type: batchv1.JobFailed, Status: corev1.ConditionTrue},
			}}},
			RunStatusFailed,
		},
		{
			"false condition ignored",
			&batchv1.Job{Status: batchv1.JobStatus{Conditions: []batchv1.JobCondition{
				{Type: batchv1.JobFailed, Status: corev1.ConditionFalse},
			}}},
			RunStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jobStatusToRunStatus(tt.job); got != tt.expected {
				t.Errorf("jobStatusToRunStatus() = %s, want %s", got, tt.expected)
			}
		})
	}
}
