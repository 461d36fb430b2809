package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/systemstart/stagehand/pkg/api"
)

// DiscoverWorkflows loads every workflow file in dir, in file name order.
// Only *.yml and *.yaml entries directly in dir count; workflows do not nest.
func DiscoverWorkflows(dir string) ([]*api.Workflow, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving workflows directory: %w", err)
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("reading workflows directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yml", ".yaml":
			paths = append(paths, filepath.Join(absDir, entry.Name()))
		}
	}

	return loadAll(paths)
}

func loadAll(paths []string) ([]*api.Workflow, error) {
	workflows := make([]*api.Workflow, 0, len(paths))
	for _, p := range paths {
		wf, err := api.LoadWorkflow(p)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", p, err)
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}
