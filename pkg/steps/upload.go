package steps

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type uploadArtifactStep struct {
	name string
	with map[string]string
}

// NewUploadArtifactStep creates a step that copies workspace files into the
// run's artifact directory. Parameters: path (required, comma-separated glob
// patterns relative to the workspace).
func NewUploadArtifactStep(name string, with map[string]string) Step {
	return &uploadArtifactStep{name: name, with: with}
}

func (s *uploadArtifactStep) Name() string { return s.name }

func (s *uploadArtifactStep) Run(ctx context.Context, sc StepContext) (*StepResult, error) {
	start := time.Now()

	with, err := renderMap(s.name, s.with, sc.Data)
	if err != nil {
		return nil, fmt.Errorf("rendering parameters: %w", err)
	}
	patterns := splitPatterns(with["path"])
	if len(patterns) == 0 {
		return nil, fmt.Errorf("upload-artifact requires a path parameter")
	}

	files, err := filterFiles(os.DirFS(sc.WorkDir), patterns, nil)
	if err != nil {
		return nil, fmt.Errorf("selecting files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files matched %q", with["path"])
	}

	for _, f := range files {
		if err := copyFile(filepath.Join(sc.WorkDir, f), filepath.Join(sc.ArtifactDir, f)); err != nil {
			return nil, fmt.Errorf("copying %s: %w", f, err)
		}
	}

	slog.Info("artifacts collected", "step", s.name, "files", len(files))
	return &StepResult{Duration: time.Since(start)}, nil
}
