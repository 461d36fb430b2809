// Package workspace manages the ephemeral directory tree a single run owns
// for its lifetime. Nothing in here is shared between runs.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Manager creates and tears down one run's directories: a work dir the steps
// execute in and an artifact dir that collected outputs go to.
type Manager struct {
	baseDir      string
	artifactsDir string
	keep         bool

	root string
}

// NewManager returns a manager rooted at baseDir (os.TempDir when empty).
// artifactsDir overrides where artifacts land; when empty they live inside
// the run root and vanish with it. keep disables cleanup for debugging.
func NewManager(baseDir, artifactsDir string, keep bool) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir, artifactsDir: artifactsDir, keep: keep}
}

// Create builds the run root for runID. Calling it twice is an error.
func (m *Manager) Create(runID string) error {
	if m.root != "" {
		return fmt.Errorf("workspace already created at %s", m.root)
	}

	root := filepath.Join(m.baseDir, "stagehand-"+runID)
	for _, dir := range []string{m.WorkDirFor(root), m.artifactDirFor(root)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating workspace dir %s: %w", dir, err)
		}
	}
	m.root = root

	slog.Debug("workspace created", "root", root)
	return nil
}

// Root returns the run root, empty before Create.
func (m *Manager) Root() string {
	return m.root
}

// WorkDir is where steps execute.
func (m *Manager) WorkDir() string {
	return m.WorkDirFor(m.root)
}

func (m *Manager) WorkDirFor(root string) string {
	return filepath.Join(root, "work")
}

// ArtifactDir is where collected outputs land.
func (m *Manager) ArtifactDir() string {
	return m.artifactDirFor(m.root)
}

func (m *Manager) artifactDirFor(root string) string {
	if m.artifactsDir != "" {
		return m.artifactsDir
	}
	return filepath.Join(root, "artifacts")
}

// Cleanup removes the run root unless the manager keeps workspaces. An
// external artifacts dir is never removed.
func (m *Manager) Cleanup() error {
	if m.root == "" {
		return nil
	}
	if m.keep {
		slog.Info("keeping workspace", "root", m.root)
		return nil
	}
	if err := os.RemoveAll(m.root); err != nil {
		return fmt.Errorf("removing workspace %s: %w", m.root, err)
	}
	slog.Debug("workspace removed", "root", m.root)
	m.root = ""
	return nil
}
