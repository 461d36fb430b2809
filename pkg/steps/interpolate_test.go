package steps

import (
	"strings"
	"testing"
)

func TestRender_PlainTextPassesThrough(t *testing.T) {
	out, err := render("t", "cargo doc --no-deps", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "cargo doc --no-deps" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRender_SprigFunctions(t *testing.T) {
	out, err := render("t", `{{ .event.branch | upper }}`, map[string]any{
		"event": map[string]any{"branch": "master"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "MASTER" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRender_ParseError(t *testing.T) {
	_, err := render("t", "{{ .Broken", nil)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parsing template") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRenderMap(t *testing.T) {
	out, err := renderMap("t", map[string]string{
		"path":    "docs/{{ .run.id }}",
		"content": "plain",
	}, map[string]any{"run": map[string]any{"id": "run-1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["path"] != "docs/run-1" || out["content"] != "plain" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestRenderMap_Empty(t *testing.T) {
	out, err := renderMap("t", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty map, got %v", out)
	}
}
