package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/utils/ptr"
)

const (
	// RunIDLabel ties a Kubernetes Job back to the run that created it.
	RunIDLabel = "dist2src.packit.dev/run-id"
	// SpecNameLabel carries the schedule spec name on created Jobs.
	SpecNameLabel = "dist2src.packit.dev/spec"
)

// K8sRunner executes runs as Kubernetes Jobs in a fixed namespace.
type K8sRunner struct {
	client    kubernetes.Interface
	namespace string
	image     string
}

// NewK8sRunner creates a Kubernetes runner for the given namespace and image.
func NewK8sRunner(client kubernetes.Interface, namespace, image string) *K8sRunner {
	return &K8sRunner{
		client:    client,
		namespace: namespace,
		image:     image,
	}
}

// Submit creates a Kubernetes Job for the run.
func (r *K8sRunner) Submit(ctx context.Context, spec JobSpec) (*Run, error) {
	runID := spec.ID
	if runID == "" {
		runID = uuid.New().String()
	}

	resources, err := resourceRequirements(spec.Resources)
	if err != nil {
		return nil, fmt.Errorf("building resource requirements: %w", err)
	}

	// Caller-supplied IDs may be shorter than the uuid default.
	suffix := runID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	jobName := fmt.Sprintf("%s-%s", spec.Name, suffix)

	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name: jobName,
			Labels: map[string]string{
				RunIDLabel:    runID,
				SpecNameLabel: spec.Name,
			},
		},
		Spec: batchv1.JobSpec{
			Parallelism: ptr.To(int32(1)),
			Completions: ptr.To(int32(1)),
			// No retry-on-failure: the next attempt is the next calendar firing.
			BackoffLimit: ptr.To(int32(0)),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{
						RunIDLabel:    runID,
						SpecNameLabel: spec.Name,
					},
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers: []corev1.Container{
						{
							Name:      "main",
							Image:     r.image,
							Command:   append([]string{spec.Command}, spec.Args...),
							Env:       envMapToEnvVars(spec.Env),
							EnvFrom:   envFromSources(spec.EnvFrom),
							Resources: resources,
						},
					},
				},
			},
		},
	}

	createdJob, err := r.client.BatchV1().Jobs(r.namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	return &Run{
		ID:        runID,
		Name:      spec.Name,
		Status:    RunStatusPending,
		Command:   spec.Command,
		Args:      spec.Args,
		CreatedAt: time.Now(),
		Metadata: map[string]string{
			"k8s_job_name":  createdJob.Name,
			"k8s_namespace": r.namespace,
		},
	}, nil
}

// GetRun fetches the current state of a run.
func (r *K8sRunner) GetRun(ctx context.Context, runID string) (*Run, error) {
	jobs, err := r.client.BatchV1().Jobs(r.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("%s=%s", RunIDLabel, runID),
	})
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	if len(jobs.Items) == 0 {
		return nil, fmt.Errorf("run %s not found", runID)
	}

	job := &jobs.Items[0]
	run := &Run{
		ID:        runID,
		Name:      job.Labels[SpecNameLabel],
		Status:    jobStatusToRunStatus(job),
		CreatedAt: job.CreationTimestamp.Time,
		Metadata: map[string]string{
			"k8s_job_name":  job.Name,
			"k8s_namespace": r.namespace,
		},
	}

	for _, condition := range job.Status.Conditions {
		if condition.Status != corev1.ConditionTrue {
			continue
		}
		switch condition.Type {
		case batchv1.JobComplete:
			run.FinishedAt = &condition.LastTransitionTime.Time
		case batchv1.JobFailed:
			run.FinishedAt = &condition.LastTransitionTime.Time
			run.Error = condition.Message
		}
	}

	pods, err := r.client.CoreV1().Pods(r.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("%s=%s", RunIDLabel, runID),
	})
	if err == nil && len(pods.Items) > 0 {
		pod := &pods.Items[0]
		if pod.Status.StartTime != nil {
			run.StartedAt = &pod.Status.StartTime.Time
		}
		for _, status := range pod.Status.ContainerStatuses {
			if status.State.Terminated != nil {
				exitCode := int(status.State.Terminated.ExitCode)
				run.ExitCode = &exitCode
			}
		}
	}

	return run, nil
}

// Wait polls until the run reaches a terminal status.
func (r *K8sRunner) Wait(ctx context.Context, runID string) (*Run, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			run, err := r.GetRun(ctx, runID)
			if err != nil {
				return nil, err
			}
			if run.Status.Terminal() {
				return run, nil
			}
		}
	}
}

// Cancel deletes the Job backing the run with foreground propagation,
// taking its pods down with it.
func (r *K8sRunner) Cancel(ctx context.Context, runID string) error {
	run, err := r.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	jobName := run.Metadata["k8s_job_name"]
	if jobName == "" {
		return fmt.Errorf("job name not found in run metadata")
	}

	deletePolicy := metav1.DeletePropagationForeground
	return r.client.BatchV1().Jobs(r.namespace).Delete(ctx, jobName, metav1.DeleteOptions{
		PropagationPolicy: &deletePolicy,
	})
}

// Helper functions

func envMapToEnvVars(envMap map[string]string) []corev1.EnvVar {
	if envMap == nil {
		return nil
	}

	envVars := make([]corev1.EnvVar, 0, len(envMap))
	for k, v := range envMap {
		envVars = append(envVars, corev1.EnvVar{
			Name:  k,
			Value: v,
		})
	}
	return envVars
}

func envFromSources(sources []EnvFromSource) []corev1.EnvFromSource {
	if len(sources) == 0 {
		return nil
	}

	out := make([]corev1.EnvFromSource, 0, len(sources))
	for _, src := range sources {
		switch {
		case src.ConfigMapName != "":
			out = append(out, corev1.EnvFromSource{
				ConfigMapRef: &corev1.ConfigMapEnvSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: src.ConfigMapName},
					Optional:             ptr.To(src.Optional),
				},
			})
		case src.SecretName != "":
			out = append(out, corev1.EnvFromSource{
				SecretRef: &corev1.SecretEnvSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: src.SecretName},
					Optional:             ptr.To(src.Optional),
				},
			})
		}
	}
	return out
}

func resourceRequirements(res Resources) (corev1.ResourceRequirements, error) {
	req := corev1.ResourceRequirements{}

	limits := corev1.ResourceList{}
	if err := setQuantity(limits, corev1.ResourceMemory, res.MemoryLimit); err != nil {
		return req, err
	}
	if err := setQuantity(limits, corev1.ResourceCPU, res.CPULimit); err != nil {
		return req, err
	}
	if len(limits) > 0 {
		req.Limits = limits
	}

	requests := corev1.ResourceList{}
	if err := setQuantity(requests, corev1.ResourceMemory, res.MemoryRequest); err != nil {
		return req, err
	}
	if err := setQuantity(requests, corev1.ResourceCPU, res.CPURequest); err != nil {
		return req, err
	}
	if len(requests) > 0 {
		req.Requests = requests
	}

	return req, nil
}

func setQuantity(list corev1.ResourceList, name corev1.ResourceName, value string) error {
	if value == "" {
		return nil
	}
	q, err := resource.ParseQuantity(value)
	if err != nil {
		return fmt.Errorf("%s: invalid quantity %q: %w", name, value, err)
	}
	list[name] = q
	return nil
}

func jobStatusToRunStatus(job *batchv1.Job) RunStatus {
	for _, condition := range job.Status.Conditions {
		if condition.Status != corev1.ConditionTrue {
			continue
		}
		switch condition.Type {
		case batchv1.JobComplete:
			return RunStatusSucceeded
		case batchv1.JobFailed:
			return RunStatusFailed
		}
	}

	if job.Status.Active > 0 {
		return RunStatusRunning
	}

	return RunStatusPending
}

var _ Runner = (*K8sRunner)(nil)
