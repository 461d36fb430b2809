package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os/exec"
	"slices"
	"time"
)

type shellStep struct {
	name    string
	command string
	env     map[string]string
}

// NewShellStep creates a step that runs a shell command in the workspace.
func NewShellStep(name, command string, env map[string]string) Step {
	return &shellStep{name: name, command: command, env: env}
}

func (s *shellStep) Name() string { return s.name }

func (s *shellStep) Run(ctx context.Context, sc StepContext) (*StepResult, error) {
	shell, err := lookupShell()
	if err != nil {
		return nil, err
	}

	command, err := render(s.name, s.command, sc.Data)
	if err != nil {
		return nil, fmt.Errorf("rendering command: %w", err)
	}
	stepEnv, err := renderMap(s.name, s.env, sc.Data)
	if err != nil {
		return nil, fmt.Errorf("rendering env: %w", err)
	}

	slog.Info("running command", "step", s.name, "command", command)

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = sc.WorkDir
	cmd.Env = environLines(sc.Env, stepEnv)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	result := &StepResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if runErr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("command canceled: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("running command: %w", runErr)
	}
	return result, nil
}

func lookupShell() (string, error) {
	for _, candidate := range []string{"bash", "sh"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no shell found in PATH")
}

// environLines flattens the context env plus step overrides into the sorted
// k=v form exec wants.
func environLines(base, overrides map[string]string) []string {
	merged := make(map[string]string, len(base)+len(overrides))
	maps.Copy(merged, base)
	maps.Copy(merged, overrides)

	lines := make([]string, 0, len(merged))
	for k, v := range merged {
		lines = append(lines, k+"="+v)
	}
	slices.Sort(lines)
	return lines
}
