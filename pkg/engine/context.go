package engine

import (
	"maps"
	"os"

	"github.com/systemstart/stagehand/pkg/api"
	"github.com/systemstart/stagehand/pkg/trigger"
	"github.com/systemstart/stagehand/pkg/workspace"
)

// ambientEnv is the slice of the host environment runs inherit. Everything
// else a step sees is declared in the workflow or contributed by the
// toolchain handle.
func ambientEnv() map[string]string {
	env := make(map[string]string)
	for _, key := range []string{"PATH", "HOME", "TMPDIR"} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return env
}

// mergeEnv performs a shallow merge of the layers, later keys overriding
// earlier ones.
func mergeEnv(layers ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, layer := range layers {
		maps.Copy(merged, layer)
	}
	return merged
}

// buildData assembles the metadata steps interpolate against.
func buildData(runID string, wf *api.Workflow, ev trigger.Event, ws *workspace.Manager, env map[string]string) map[string]any {
	return map[string]any{
		"run": map[string]any{
			"id":       runID,
			"workflow": wf.Name,
		},
		"event": map[string]any{
			"kind":   ev.Kind,
			"branch": ev.Branch,
		},
		"workspace": map[string]any{
			"root":      ws.Root(),
			"work":      ws.WorkDir(),
			"artifacts": ws.ArtifactDir(),
		},
		"env": env,
	}
}
