// Package readiness verifies that a deployed workload reached its expected
// phase, and that the live auth token matches the configured one.
package readiness

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// Instance is one running copy of a workload with its lifecycle phase.
type Instance struct {
	Name  string
	Phase string
}

// WorkloadStatusSource lists a workload's instances. Injected so tests can
// substitute a fake returning deterministic instance lists.
type WorkloadStatusSource interface {
	ListInstances(ctx context.Context, namespace, selector string) ([]Instance, error)
}

// PodStatusSource queries pods through the Kubernetes API.
type PodStatusSource struct {
	Client kubernetes.Interface
}

// ListInstances returns pods matching the label selector, in API list
// order. No sort is applied; callers needing determinism sort themselves.
func (s *PodStatusSource) ListInstances(ctx context.Context, namespace, selector string) ([]Instance, error) {
	pods, err := s.Client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
	})
	if err != nil {
		return nil, fmt.Errorf("listing pods: %w", err)
	}

	instances := make([]Instance, 0, len(pods.Items))
	for _, pod := range pods.Items {
		instances = append(instances, Instance{
			Name:  pod.Name,
			Phase: string(pod.Status.Phase),
		})
	}
	return instances, nil
}

var _ WorkloadStatusSource = (*PodStatusSource)(nil)
