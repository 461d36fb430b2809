package api

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/robfig/cron/v3"
)

var validEvents = map[string]bool{
	EventPush:        true,
	EventPullRequest: true,
	EventSchedule:    true,
	EventManual:      true,
}

var validActions = map[string]bool{
	ActionCheckout:       true,
	ActionWriteFile:      true,
	ActionUploadArtifact: true,
}

var eventNames = []string{EventPush, EventPullRequest, EventSchedule, EventManual}

// Validate checks the workflow configuration for errors.
func (w *Workflow) Validate() error {
	if len(w.On) == 0 {
		return fmt.Errorf("workflow has no trigger rules")
	}
	for i, rule := range w.On {
		if err := validateTriggerRule(rule); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}

	if len(w.Jobs) == 0 {
		return fmt.Errorf("workflow has no jobs")
	}
	jobNames := make(map[string]int)
	for i, job := range w.Jobs {
		if job.Name == "" {
			return fmt.Errorf("job %d: name is required", i)
		}
		if prev, exists := jobNames[job.Name]; exists {
			return fmt.Errorf("job %d: duplicate job name %q (first defined at job %d)", i, job.Name, prev)
		}
		jobNames[job.Name] = i

		if err := validateJob(job); err != nil {
			return fmt.Errorf("job %q: %w", job.Name, err)
		}
	}

	if w.Publish != nil {
		if err := validatePublishConfig(w.Publish); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
	}

	return nil
}

func validateTriggerRule(rule TriggerRule) error {
	if rule.Event == "" {
		return fmt.Errorf("event is required")
	}
	if !validEvents[rule.Event] {
		return fmt.Errorf("unknown event %q (valid: %s)", rule.Event, strings.Join(eventNames, ", "))
	}

	if rule.Event == EventSchedule {
		if rule.Cron == "" {
			return fmt.Errorf("cron is required for schedule rules")
		}
		if _, err := cron.ParseStandard(rule.Cron); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", rule.Cron, err)
		}
		if len(rule.Branches) > 0 {
			return fmt.Errorf("branches are not valid for schedule rules")
		}
		return nil
	}

	if rule.Cron != "" {
		return fmt.Errorf("cron is only valid for schedule rules")
	}
	for _, pattern := range rule.Branches {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid branch pattern %q", pattern)
		}
	}
	return nil
}

func validateJob(job Job) error {
	names := make(map[string]int)

	for i, step := range job.Steps {
		if step.Name == "" {
			return fmt.Errorf("step %d: name is required", i)
		}
		if prev, exists := names[step.Name]; exists {
			return fmt.Errorf("step %d: duplicate step name %q (first defined at step %d)", i, step.Name, prev)
		}
		names[step.Name] = i

		if err := validateStepConfig(step); err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
	}

	if job.Toolchain != nil {
		if err := validateToolchainConfig(job.Toolchain); err != nil {
			return fmt.Errorf("toolchain: %w", err)
		}
	}

	return nil
}

func validateStepConfig(step StepConfig) error {
	switch {
	case step.Run != "" && step.Uses != "":
		return fmt.Errorf("run and uses are mutually exclusive")
	case step.Run == "" && step.Uses == "":
		return fmt.Errorf("either run or uses is required")
	}

	if step.Uses != "" && !validActions[step.Uses] {
		return fmt.Errorf("unknown action %q", step.Uses)
	}
	if step.Run != "" && len(step.With) > 0 {
		return fmt.Errorf("with is only valid for uses steps")
	}
	return nil
}

func validateToolchainConfig(tc *ToolchainConfig) error {
	if tc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if tc.Channel == "" {
		return fmt.Errorf("channel is required")
	}
	return nil
}

func validatePublishConfig(p *PublishConfig) error {
	if p.Folder == "" {
		return fmt.Errorf("folder is required")
	}
	if p.Branch == "" {
		return fmt.Errorf("branch is required")
	}
	return nil
}
