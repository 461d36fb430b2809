package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/systemstart/stagehand/pkg/api"
	"github.com/systemstart/stagehand/pkg/config"
	"github.com/systemstart/stagehand/pkg/engine"
	"github.com/systemstart/stagehand/pkg/history"
	"github.com/systemstart/stagehand/pkg/logging"
	"github.com/systemstart/stagehand/pkg/trigger"
)

var version = "dev"

const (
	_ = iota
	exitDotenvError
	exitConfigurationFailed
	exitHistoryQueryFailed
	exitEventNotSpecified
	exitEventMalformed
	exitRepositoryCheckFailed
	exitRepositoryNotADirectory
	exitWorkflowLoadFailed
	exitRunSetupFailed
	exitBuildFailed
	exitPublishFailed
)

var (
	eventKind     string
	eventBranch   string
	workflowFile  string
	workflowsDir  string
	repoDirectory string
	artifactsDir  string
	keepWorkspace bool
	explainOnly   bool
	historyCount  int
	loggingType   string
	logLevel      string
	showVersion   bool
)

func init() {
	flag.StringVar(
		&eventKind,
		"event",
		"",
		"event kind: push, pull_request, schedule or manual")
	flag.StringVar(
		&eventBranch,
		"branch",
		"",
		"branch the event refers to (push, pull_request)")
	flag.StringVar(
		&workflowFile,
		"workflow",
		"",
		"single workflow file to evaluate (non-discovery mode)")
	flag.StringVar(
		&workflowsDir,
		"dir",
		".stagehand",
		"workflows directory")
	flag.StringVar(
		&repoDirectory,
		"repo",
		".",
		"source repository root")
	flag.StringVar(
		&artifactsDir,
		"artifacts-dir",
		"",
		"collect artifacts here instead of inside the run workspace")
	flag.BoolVar(
		&keepWorkspace,
		"keep-workspace",
		false,
		"keep run workspaces for debugging")
	flag.BoolVar(
		&explainOnly,
		"explain",
		false,
		"report trigger decisions without running anything")
	flag.IntVar(
		&historyCount,
		"history",
		0,
		"print the n most recent runs and exit")
	flag.StringVar(
		&loggingType,
		"logging-type",
		"tint",
		"logging type: json, text or tint")
	flag.StringVar(
		&logLevel,
		"log-level",
		"info",
		"logging level: debug, info, warn, error")
	flag.BoolVar(
		&showVersion,
		"version",
		false,
		"print version and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	_ = logging.Initialize(loggingType, logLevel)

	includeEnv()
	cfg := loadSettings()

	if historyCount > 0 {
		printHistory(cfg)
		return
	}

	ev := buildEvent()

	if explainOnly {
		explainWorkflows(loadWorkflowSet(), ev)
		return
	}

	checkRepoDirectory()

	if code := runWorkflows(cfg, ev); code != 0 {
		os.Exit(code)
	}

	slog.Info("done")
}

// runWorkflows executes either the single workflow file or everything the
// workflows directory holds. The return value is the process exit code; a
// skipped trigger is not a failure.
func runWorkflows(cfg *config.Config, ev trigger.Event) int {
	eng := engine.New(cfg, repoDirectory)
	eng.ArtifactsDir = artifactsDir
	eng.KeepWorkspace = keepWorkspace

	if cfg.History.DBPath != "" {
		store, err := history.Open(cfg.History.DBPath)
		if err != nil {
			slog.Warn("history store unavailable", "path", cfg.History.DBPath, "error", err)
		} else {
			eng.History = store
			defer store.Close()
		}
	}

	ctx := context.Background()

	if workflowFile != "" {
		wf, err := api.LoadWorkflow(workflowFile)
		if err != nil {
			slog.Error("failed to load workflow", "filename", workflowFile, "error", err)
			return exitWorkflowLoadFailed
		}
		res, err := eng.Execute(ctx, wf, ev)
		if err != nil {
			slog.Error("run setup failed", "error", err)
			return exitRunSetupFailed
		}
		return exitCodeFor(res)
	}

	results, err := eng.RunAll(ctx, workflowsDir, ev)
	if err != nil {
		slog.Error("workflow execution failed", "error", err)
		return worstExitCode(results)
	}
	return 0
}

func exitCodeFor(res *engine.RunResult) int {
	switch {
	case res.Status == engine.StatusFailed:
		return exitBuildFailed
	case res.PublishErr != nil:
		return exitPublishFailed
	default:
		return 0
	}
}

// worstExitCode picks the exit code after RunAll reported failures: a build
// failure outranks a publish failure, and a summary error without any failed
// result means a workflow could not even start.
func worstExitCode(results []*engine.RunResult) int {
	publishFailed := false
	for _, res := range results {
		if res.Status == engine.StatusFailed {
			return exitBuildFailed
		}
		if res.PublishErr != nil {
			publishFailed = true
		}
	}
	if publishFailed {
		return exitPublishFailed
	}
	return exitRunSetupFailed
}

func explainWorkflows(workflows []*api.Workflow, ev trigger.Event) {
	for _, wf := range workflows {
		decision := trigger.Explain(wf.On, ev)
		verdict := "skip"
		if decision.Matched {
			verdict = "run"
		}
		fmt.Printf("%s: %s (%s)\n", wf.Name, verdict, decision.Reason)

		if next, ok := trigger.NextActivation(wf.On, time.Now()); ok {
			fmt.Printf("%s: next schedule activation %s\n", wf.Name, next.Format(time.RFC3339))
		}
	}
}

func printHistory(cfg *config.Config) {
	if cfg.History.DBPath == "" {
		slog.Error("no history database configured, set STAGEHAND_HISTORY_DB_PATH")
		os.Exit(exitHistoryQueryFailed)
	}

	store, err := history.Open(cfg.History.DBPath)
	if err != nil {
		slog.Error("failed to open history store", "path", cfg.History.DBPath, "error", err)
		os.Exit(exitHistoryQueryFailed)
	}

	runs, err := store.RecentRuns(historyCount)
	store.Close()
	if err != nil {
		slog.Error("failed to list runs", "error", err)
		os.Exit(exitHistoryQueryFailed)
	}

	for _, r := range runs {
		branch := r.Branch
		if branch == "" {
			branch = "-"
		}
		marker := ""
		if r.Published {
			marker = "  published"
		}
		fmt.Printf("%s  %-7s  %-12s  %-20s  %s/%s%s\n",
			r.Created, r.Status, r.ID, r.Workflow, r.Event, branch, marker)
	}
}

func loadWorkflowSet() []*api.Workflow {
	if workflowFile != "" {
		wf, err := api.LoadWorkflow(workflowFile)
		if err != nil {
			slog.Error("failed to load workflow", "filename", workflowFile, "error", err)
			os.Exit(exitWorkflowLoadFailed)
		}
		return []*api.Workflow{wf}
	}

	workflows, err := engine.DiscoverWorkflows(workflowsDir)
	if err != nil {
		slog.Error("failed to discover workflows", "dir", workflowsDir, "error", err)
		os.Exit(exitWorkflowLoadFailed)
	}
	return workflows
}

func loadSettings() *config.Config {
	cfg, err := config.Load(context.Background())
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(exitConfigurationFailed)
	}
	return cfg
}

func buildEvent() trigger.Event {
	if eventKind == "" {
		slog.Error("-event not set")
		os.Exit(exitEventNotSpecified)
	}

	switch eventKind {
	case api.EventPush, api.EventPullRequest:
		if eventBranch == "" {
			slog.Error("-branch required for event", "event", eventKind)
			os.Exit(exitEventMalformed)
		}
	case api.EventSchedule, api.EventManual:
	default:
		slog.Error("unknown event kind", "event", eventKind)
		os.Exit(exitEventMalformed)
	}

	return trigger.Event{Kind: eventKind, Branch: eventBranch}
}

func includeEnv() {
	err := godotenv.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load .env", "error", err)
			os.Exit(exitDotenvError)
		}
		slog.Info("no .env file found")
	} else {
		slog.Info("using .env file")
	}
}

func checkRepoDirectory() {
	st, err := os.Stat(repoDirectory)
	if err != nil {
		slog.Error("failed to check repository root", "directory", repoDirectory, "error", err)
		os.Exit(exitRepositoryCheckFailed)
	}

	if !st.IsDir() {
		slog.Error("-repo is not a directory", "directory", repoDirectory)
		os.Exit(exitRepositoryNotADirectory)
	}
}
