package api

import "gopkg.in/yaml.v3"

const (
	EventPush        = "push"
	EventPullRequest = "pull_request"
	EventSchedule    = "schedule"
	EventManual      = "manual"

	ActionCheckout       = "checkout"
	ActionWriteFile      = "write-file"
	ActionUploadArtifact = "upload-artifact"
)

// Workflow is the workflow configuration format.
type Workflow struct {
	Name    string         `yaml:"name"`
	On      []TriggerRule  `yaml:"on"`
	Jobs    []Job          `yaml:"jobs"`
	Publish *PublishConfig `yaml:"publish,omitempty"`

	// Set by the loader, not from YAML.
	Dir      string `yaml:"-"`
	FilePath string `yaml:"-"`
}

// TriggerRule matches one event shape. A workflow runs when any of its rules
// matches the incoming event.
type TriggerRule struct {
	Event    string     `yaml:"event"`
	Branches StringList `yaml:"branches,omitempty"`
	Cron     string     `yaml:"cron,omitempty"`
}

// Job is a named, ordered list of steps with its runtime environment.
type Job struct {
	Name        string            `yaml:"name"`
	Environment string            `yaml:"environment,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	Toolchain   *ToolchainConfig  `yaml:"toolchain,omitempty"`
	Steps       []StepConfig      `yaml:"steps"`
}

// ToolchainConfig names the toolchain a job needs before its steps run.
type ToolchainConfig struct {
	Name     string `yaml:"name"`
	Channel  string `yaml:"channel"`
	Override bool   `yaml:"override,omitempty"`
}

// StepConfig defines a single step within a job. Exactly one of Run and Uses
// must be set: Run executes a shell command, Uses invokes a builtin action
// with With as its parameters.
type StepConfig struct {
	Name string            `yaml:"name"`
	Run  string            `yaml:"run,omitempty"`
	Uses string            `yaml:"uses,omitempty"`
	With map[string]string `yaml:"with,omitempty"`
	Env  map[string]string `yaml:"env,omitempty"`
}

// PublishConfig describes where a successful run's output goes: Folder is a
// path relative to the workspace, Branch the target branch. Remote overrides
// the configured repository URL, Message the commit message.
type PublishConfig struct {
	Folder  string `yaml:"folder"`
	Branch  string `yaml:"branch"`
	Remote  string `yaml:"remote,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// StringList accepts either a single scalar or a sequence in YAML.
type StringList []string

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	var one string
	if err := value.Decode(&one); err == nil {
		*s = StringList{one}
		return nil
	}

	var many []string
	if err := value.Decode(&many); err != nil {
		return err
	}
	*s = many
	return nil
}
