package schedule

import "github.com/jpopelka/dist-git-to-source-git/pkg/runner"

// MergeEnv flattens the literal entries of an ordered env-source list into
// a single map. Later sources override earlier ones on key collision.
// Config map and secret references are not resolved here; they pass
// through to the execution environment as envFrom references.
func MergeEnv(sources []EnvSource) map[string]string {
	merged := make(map[string]string)
	for _, src := range sources {
		for k, v := range src.Literal {
			merged[k] = v
		}
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// EnvFromRefs extracts the config map / secret references of an ordered
// env-source list, preserving order.
func EnvFromRefs(sources []EnvSource) []runner.EnvFromSource {
	var refs []runner.EnvFromSource
	for _, src := range sources {
		if src.ConfigMapName == "" && src.SecretName == "" {
			continue
		}
		refs = append(refs, runner.EnvFromSource{
			ConfigMapName: src.ConfigMapName,
			SecretName:    src.SecretName,
			Optional:      src.Optional,
		})
	}
	return refs
}
