package steps

import (
	"fmt"

	"github.com/systemstart/stagehand/pkg/api"
)

// NewStep creates a Step implementation from a StepConfig. A config with a
// command becomes a shell step, one with an action reference becomes that
// builtin action.
func NewStep(cfg api.StepConfig) (Step, error) {
	if cfg.Run != "" {
		return NewShellStep(cfg.Name, cfg.Run, cfg.Env), nil
	}

	switch cfg.Uses {
	case api.ActionCheckout:
		return NewCheckoutStep(cfg.Name, cfg.With), nil
	case api.ActionWriteFile:
		return NewWriteFileStep(cfg.Name, cfg.With), nil
	case api.ActionUploadArtifact:
		return NewUploadArtifactStep(cfg.Name, cfg.With), nil
	default:
		return nil, fmt.Errorf("unknown action: %s", cfg.Uses)
	}
}
