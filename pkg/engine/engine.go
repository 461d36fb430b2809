// Package engine runs workflows end to end: it gates on the trigger,
// prepares the run workspace, provisions toolchains, executes each job's
// steps in declared order, records the run in history, and publishes the
// output of successful runs.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/systemstart/stagehand/pkg/api"
	"github.com/systemstart/stagehand/pkg/config"
	"github.com/systemstart/stagehand/pkg/history"
	"github.com/systemstart/stagehand/pkg/publish"
	"github.com/systemstart/stagehand/pkg/steps"
	"github.com/systemstart/stagehand/pkg/toolchain"
	"github.com/systemstart/stagehand/pkg/trigger"
	"github.com/systemstart/stagehand/pkg/workspace"
)

// Engine executes workflows. A zero History disables run recording; the
// other fields have working defaults for a local checkout.
type Engine struct {
	Config     *config.Config
	Toolchains *toolchain.Registry
	History    *history.Store
	RepoDir    string // source repository root, what checkout copies from

	WorkspaceBase string // parent dir for run workspaces, os.TempDir when empty
	ArtifactsDir  string // external artifact destination, workspace-local when empty
	KeepWorkspace bool   // leave run workspaces behind for debugging
}

// New returns an engine over repoDir with the built-in toolchain installers.
func New(cfg *config.Config, repoDir string) *Engine {
	return &Engine{
		Config:     cfg,
		Toolchains: toolchain.DefaultRegistry(),
		RepoDir:    repoDir,
	}
}

// Execute evaluates one workflow against an event. The trigger decides
// whether anything runs at all; a run that starts moves pending -> running
// -> success or failed, and only a fully successful run publishes. The
// returned error reports setup problems; build and publish failures are in
// the result.
func (e *Engine) Execute(ctx context.Context, wf *api.Workflow, ev trigger.Event) (*RunResult, error) {
	res := &RunResult{
		ID:       NewRunID(),
		Workflow: wf.Name,
		Event:    ev,
		Status:   StatusPending,
	}

	if !trigger.ShouldRun(wf.On, ev) {
		res.Status = StatusSkipped
		slog.Info("workflow skipped", "workflow", wf.Name, "event", ev.Kind, "branch", ev.Branch)
		return res, nil
	}

	if e.Config != nil && e.Config.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Config.Run.Timeout)
		defer cancel()
	}

	ws := workspace.NewManager(e.WorkspaceBase, e.ArtifactsDir, e.KeepWorkspace)
	if err := ws.Create(res.ID); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("workspace cleanup failed", "run", res.ID, "error", err)
		}
	}()

	e.record("create", func(s *history.Store) error {
		return s.CreateRun(res.ID, res.Workflow, ev.Kind, ev.Branch)
	})

	res.Status = StatusRunning
	e.record("running", func(s *history.Store) error {
		return s.MarkRunning(res.ID)
	})
	slog.Info("run started", "run", res.ID, "workflow", wf.Name, "event", ev.Kind, "branch", ev.Branch)

	start := time.Now()
	failed := false
	for _, job := range wf.Jobs {
		if failed {
			res.Jobs = append(res.Jobs, JobResult{Name: job.Name, Status: StatusSkipped})
			continue
		}

		jr := e.runJob(ctx, res.ID, wf, job, ev, ws)
		res.Jobs = append(res.Jobs, jr)
		if jr.Status == StatusFailed {
			failed = true
			res.Err = jr.Err
		}
	}
	res.Duration = time.Since(start)

	if failed {
		res.Status = StatusFailed
		e.record("failed", func(s *history.Store) error {
			return s.MarkFailed(res.ID, res.FailureExitCode(), errText(res.Err))
		})
		slog.Error("run failed", "run", res.ID, "workflow", wf.Name, "error", res.Err)
		return res, nil
	}

	res.Status = StatusSuccess
	e.record("success", func(s *history.Store) error {
		return s.MarkSuccess(res.ID)
	})
	slog.Info("run succeeded", "run", res.ID, "workflow", wf.Name, "duration", res.Duration)

	if wf.Publish != nil {
		e.publishRun(ctx, wf, ws, res)
	}

	return res, nil
}

func (e *Engine) runJob(ctx context.Context, runID string, wf *api.Workflow, job api.Job, ev trigger.Event, ws *workspace.Manager) JobResult {
	jr := JobResult{Name: job.Name, Status: StatusRunning}
	slog.Info("job started", "run", runID, "job", job.Name, "steps", len(job.Steps))

	env := ambientEnv()
	if job.Toolchain != nil {
		handle, err := e.Toolchains.Provision(ctx, *job.Toolchain, ws.WorkDir())
		if err != nil {
			jr.Status = StatusFailed
			jr.Err = err
			for i, stepCfg := range job.Steps {
				outcome := StepOutcome{Name: stepCfg.Name, Status: StatusSkipped}
				jr.Steps = append(jr.Steps, outcome)
				e.recordStep(runID, job.Name, i, outcome)
			}
			slog.Error("toolchain provisioning failed", "run", runID, "job", job.Name, "error", err)
			return jr
		}
		env = mergeEnv(env, handle.Env, job.Env)
		slog.Info("toolchain ready", "run", runID, "job", job.Name, "toolchain", handle.Name, "channel", handle.Channel)
	} else {
		env = mergeEnv(env, job.Env)
	}

	sc := steps.StepContext{
		WorkDir:     ws.WorkDir(),
		ArtifactDir: ws.ArtifactDir(),
		RepoDir:     e.RepoDir,
		Env:         env,
		Data:        buildData(runID, wf, ev, ws, env),
	}

	for i, stepCfg := range job.Steps {
		if jr.Status == StatusFailed {
			outcome := StepOutcome{Name: stepCfg.Name, Status: StatusSkipped}
			jr.Steps = append(jr.Steps, outcome)
			e.recordStep(runID, job.Name, i, outcome)
			continue
		}

		slog.Info("running step", "run", runID, "job", job.Name, "step", stepCfg.Name)
		outcome := runStep(ctx, stepCfg, sc)
		jr.Steps = append(jr.Steps, outcome)
		e.recordStep(runID, job.Name, i, outcome)

		if outcome.Status == StatusFailed {
			jr.Status = StatusFailed
			jr.Err = outcome.Err
			slog.Error("step failed", "run", runID, "job", job.Name, "step", stepCfg.Name, "error", outcome.Err)
		}
	}

	if jr.Status != StatusFailed {
		jr.Status = StatusSuccess
		slog.Info("job succeeded", "run", runID, "job", job.Name)
	}
	return jr
}

func runStep(ctx context.Context, cfg api.StepConfig, sc steps.StepContext) StepOutcome {
	step, err := steps.NewStep(cfg)
	if err != nil {
		return StepOutcome{
			Name:   cfg.Name,
			Status: StatusFailed,
			Err:    fmt.Errorf("creating step %q: %w", cfg.Name, err),
		}
	}

	result, err := step.Run(ctx, sc)
	if err != nil {
		return StepOutcome{
			Name:   cfg.Name,
			Status: StatusFailed,
			Result: result,
			Err:    fmt.Errorf("step %q failed: %w", cfg.Name, err),
		}
	}
	if result != nil && result.ExitCode != 0 {
		return StepOutcome{
			Name:   cfg.Name,
			Status: StatusFailed,
			Result: result,
			Err:    fmt.Errorf("step %q exited with code %d", cfg.Name, result.ExitCode),
		}
	}
	return StepOutcome{Name: cfg.Name, Status: StatusSuccess, Result: result}
}

// publishRun pushes the configured folder after a successful run. A publish
// failure lands in the result but leaves the build status untouched.
func (e *Engine) publishRun(ctx context.Context, wf *api.Workflow, ws *workspace.Manager, res *RunResult) {
	req := e.publishRequest(wf, ws)

	policy := publish.RetryPolicy{Attempts: 1}
	if e.Config != nil {
		policy = publish.RetryPolicy{
			Attempts: e.Config.Publish.Retries + 1,
			Delay:    e.Config.Publish.RetryDelay,
		}
	}

	publisher := publish.NewPublisher(e.WorkspaceBase)
	pres, err := publish.WithRetry(ctx, policy, func() (*publish.Result, error) {
		return publisher.Publish(ctx, req)
	})
	if err != nil {
		res.PublishErr = err
		slog.Error("publishing failed", "run", res.ID, "branch", req.Branch, "error", err)
		return
	}

	res.Publish = pres
	e.record("published", func(s *history.Store) error {
		return s.MarkPublished(res.ID)
	})
	if pres.UpToDate {
		slog.Info("publish target already up to date", "run", res.ID, "branch", pres.Branch)
	} else {
		slog.Info("published", "run", res.ID, "branch", pres.Branch, "commit", pres.Commit)
	}
}

func (e *Engine) publishRequest(wf *api.Workflow, ws *workspace.Manager) publish.Request {
	source := wf.Publish.Folder
	if !filepath.IsAbs(source) {
		source = filepath.Join(ws.WorkDir(), source)
	}

	url := wf.Publish.Remote
	var author, email, token string
	if e.Config != nil {
		if url == "" {
			url = e.Config.Publish.Remote
		}
		author = e.Config.Publish.AuthorName
		email = e.Config.Publish.AuthorEmail
		token = e.Config.Publish.Token
	}
	if url == "" {
		url = e.RepoDir
	}
	if author == "" {
		author = "stagehand"
	}
	if email == "" {
		email = "stagehand@localhost"
	}

	return publish.Request{
		SourceDir: source,
		Branch:    wf.Publish.Branch,
		URL:       url,
		Message:   wf.Publish.Message,
		Author:    author,
		Email:     email,
		Token:     token,
	}
}

// RunAll discovers workflows in dir and executes each against the event.
// One failed workflow does not stop the others; failures are summarized in
// the returned error.
func (e *Engine) RunAll(ctx context.Context, dir string, ev trigger.Event) ([]*RunResult, error) {
	workflows, err := DiscoverWorkflows(dir)
	if err != nil {
		return nil, fmt.Errorf("discovering workflows: %w", err)
	}

	if len(workflows) == 0 {
		slog.Warn("no workflow files found", "dir", dir)
		return nil, nil
	}

	slog.Info("discovered workflows", "count", len(workflows))

	var (
		results []*RunResult
		failed  []string
	)
	for _, wf := range workflows {
		res, err := e.Execute(ctx, wf, ev)
		if err != nil {
			slog.Error("workflow failed", "workflow", wf.Name, "error", err)
			failed = append(failed, wf.Name)
			continue
		}
		results = append(results, res)
		if res.Status == StatusFailed || res.PublishErr != nil {
			failed = append(failed, wf.Name)
		}
	}

	if len(failed) > 0 {
		return results, fmt.Errorf("%d workflow(s) failed: %v", len(failed), failed)
	}
	return results, nil
}

// record runs one history operation, logging instead of failing: the store
// never decides a build's fate.
func (e *Engine) record(op string, fn func(*history.Store) error) {
	if e.History == nil {
		return
	}
	if err := fn(e.History); err != nil {
		slog.Warn("history recording failed", "op", op, "error", err)
	}
}

func (e *Engine) recordStep(runID, job string, index int, st StepOutcome) {
	e.record("step", func(s *history.Store) error {
		var exitCode int
		var duration time.Duration
		if st.Result != nil {
			exitCode = st.Result.ExitCode
			duration = st.Result.Duration
		}
		return s.RecordStep(runID, job, index, st.Name, string(st.Status), exitCode, duration)
	})
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
