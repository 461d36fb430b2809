package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/systemstart/stagehand/pkg/publish"
	"github.com/systemstart/stagehand/pkg/steps"
	"github.com/systemstart/stagehand/pkg/trigger"
)

// Status is a lifecycle state of a run, job, or step. Runs and jobs move
// pending -> running -> success or failed; terminal states are final.
// Skipped marks work that never started: steps after a failure, jobs after
// a failed job, and runs whose trigger did not match.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// NewRunID returns a fresh short run identifier.
func NewRunID() string {
	return "run-" + uuid.NewString()[:8]
}

// StepOutcome is one step's slot in a job result. Result is nil when the
// step never executed.
type StepOutcome struct {
	Name   string
	Status Status
	Result *steps.StepResult
	Err    error
}

// JobResult collects the outcomes of one job's steps.
type JobResult struct {
	Name   string
	Status Status
	Steps  []StepOutcome
	Err    error
}

// RunResult is the complete account of one workflow evaluation. Publish and
// PublishErr describe the publish attempt of a successful run; a publish
// failure never changes Status.
type RunResult struct {
	ID         string
	Workflow   string
	Event      trigger.Event
	Status     Status
	Jobs       []JobResult
	Err        error
	Publish    *publish.Result
	PublishErr error
	Duration   time.Duration
}

// FailureExitCode returns the exit code of the step that failed the run,
// or 1 when the failure produced none.
func (r *RunResult) FailureExitCode() int {
	for _, job := range r.Jobs {
		for _, st := range job.Steps {
			if st.Status == StatusFailed && st.Result != nil && st.Result.ExitCode != 0 {
				return st.Result.ExitCode
			}
		}
	}
	return 1
}
