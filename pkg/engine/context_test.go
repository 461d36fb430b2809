package engine

import (
	"testing"

	"github.com/systemstart/stagehand/pkg/api"
	"github.com/systemstart/stagehand/pkg/trigger"
	"github.com/systemstart/stagehand/pkg/workspace"
)

func TestMergeEnv(t *testing.T) {
	merged := mergeEnv(
		map[string]string{"A": "base", "B": "base"},
		map[string]string{"B": "toolchain", "C": "toolchain"},
		map[string]string{"C": "job"},
	)

	want := map[string]string{"A": "base", "B": "toolchain", "C": "job"}
	for k, v := range want {
		if merged[k] != v {
			t.Errorf("key %s: expected %q, got %q", k, v, merged[k])
		}
	}
	if len(merged) != len(want) {
		t.Errorf("expected %d keys, got %d", len(want), len(merged))
	}
}

func TestAmbientEnv(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")
	t.Setenv("SOME_SECRET", "do-not-leak")

	env := ambientEnv()
	if env["PATH"] != "/usr/bin" {
		t.Errorf("expected PATH passthrough, got %q", env["PATH"])
	}
	if _, ok := env["SOME_SECRET"]; ok {
		t.Error("arbitrary host variables must not leak into the run")
	}
}

func TestBuildData(t *testing.T) {
	ws := workspace.NewManager(t.TempDir(), "", false)
	if err := ws.Create("run-test"); err != nil {
		t.Fatal(err)
	}
	defer ws.Cleanup()

	wf := &api.Workflow{Name: "docs"}
	ev := trigger.Event{Kind: api.EventPush, Branch: "master"}
	env := map[string]string{"KEY": "value"}

	data := buildData("run-abc123", wf, ev, ws, env)

	run := data["run"].(map[string]any)
	if run["id"] != "run-abc123" || run["workflow"] != "docs" {
		t.Errorf("unexpected run data: %v", run)
	}
	event := data["event"].(map[string]any)
	if event["kind"] != "push" || event["branch"] != "master" {
		t.Errorf("unexpected event data: %v", event)
	}
	wsData := data["workspace"].(map[string]any)
	if wsData["work"] != ws.WorkDir() || wsData["artifacts"] != ws.ArtifactDir() {
		t.Errorf("unexpected workspace data: %v", wsData)
	}
	envData := data["env"].(map[string]string)
	if envData["KEY"] != "value" {
		t.Errorf("unexpected env data: %v", envData)
	}
}
