package steps

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type writeFileStep struct {
	name string
	with map[string]string
}

// NewWriteFileStep creates a step that renders content into a workspace
// file. Parameters: path (required, relative to the workspace) and content.
func NewWriteFileStep(name string, with map[string]string) Step {
	return &writeFileStep{name: name, with: with}
}

func (s *writeFileStep) Name() string { return s.name }

func (s *writeFileStep) Run(ctx context.Context, sc StepContext) (*StepResult, error) {
	start := time.Now()

	with, err := renderMap(s.name, s.with, sc.Data)
	if err != nil {
		return nil, fmt.Errorf("rendering parameters: %w", err)
	}
	path := with["path"]
	if path == "" {
		return nil, fmt.Errorf("write-file requires a path parameter")
	}

	outPath := filepath.Join(sc.WorkDir, path)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating parent directories: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(with["content"]), 0o600); err != nil {
		return nil, fmt.Errorf("writing output file: %w", err)
	}

	slog.Info("write-file wrote file", "step", s.name, "output", path)
	return &StepResult{Duration: time.Since(start)}, nil
}
