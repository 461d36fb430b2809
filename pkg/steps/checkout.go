package steps

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type checkoutStep struct {
	name string
	with map[string]string
}

// NewCheckoutStep creates a step that copies the source repository into the
// workspace. Parameters: path (subdirectory to copy, default the whole
// repository), include and exclude (comma-separated glob patterns).
func NewCheckoutStep(name string, with map[string]string) Step {
	return &checkoutStep{name: name, with: with}
}

func (s *checkoutStep) Name() string { return s.name }

func (s *checkoutStep) Run(ctx context.Context, sc StepContext) (*StepResult, error) {
	start := time.Now()

	if sc.RepoDir == "" {
		return nil, fmt.Errorf("checkout requires a source repository")
	}
	with, err := renderMap(s.name, s.with, sc.Data)
	if err != nil {
		return nil, fmt.Errorf("rendering parameters: %w", err)
	}

	src := sc.RepoDir
	if sub := with["path"]; sub != "" {
		src = filepath.Join(src, sub)
	}

	files, err := filterFiles(os.DirFS(src), splitPatterns(with["include"]), splitPatterns(with["exclude"]))
	if err != nil {
		return nil, fmt.Errorf("selecting files: %w", err)
	}

	for _, f := range files {
		if err := copyFile(filepath.Join(src, f), filepath.Join(sc.WorkDir, f)); err != nil {
			return nil, fmt.Errorf("copying %s: %w", f, err)
		}
	}

	slog.Info("checkout copied source", "step", s.name, "files", len(files))
	return &StepResult{Duration: time.Since(start)}, nil
}
