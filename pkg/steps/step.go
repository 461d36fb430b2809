package steps

import (
	"context"
	"time"
)

// StepContext is the explicit execution context handed to every step: the
// run's directories, the merged environment, and the data available to
// parameter interpolation. Steps read all runtime state from here, never
// from process globals.
type StepContext struct {
	WorkDir     string
	ArtifactDir string
	RepoDir     string // source repository root, what checkout copies from
	Env         map[string]string
	Data        map[string]any
}

// StepResult records a single step invocation.
type StepResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Step is the interface all job steps implement. Run returns an error only
// when the step could not execute at all; a command that ran and exited
// non-zero comes back as a result with its exit code, and the engine decides
// what that means for the job.
type Step interface {
	Name() string
	Run(ctx context.Context, sc StepContext) (*StepResult, error)
}
