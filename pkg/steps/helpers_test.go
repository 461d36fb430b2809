package steps

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTestFile writes content to a file in dir, failing the test on error.
func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func mkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o750); err != nil {
		t.Fatal(err)
	}
}

// assertFileContent fails unless path exists with exactly content.
func assertFileContent(t *testing.T, path, content string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	if string(data) != content {
		t.Fatalf("file %s content = %q, want %q", path, string(data), content)
	}
}

func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to not exist, err = %v", path, err)
	}
}

// testStepContext builds a StepContext with fresh temp dirs.
func testStepContext(t *testing.T) StepContext {
	t.Helper()
	return StepContext{
		WorkDir:     t.TempDir(),
		ArtifactDir: t.TempDir(),
		RepoDir:     t.TempDir(),
		Env:         map[string]string{},
		Data:        map[string]any{},
	}
}
