// Package config carries the operational settings that do not belong in
// workflow files: credentials, store locations, deadlines. Everything is
// sourced from the environment with a STAGEHAND_ prefix.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Publish PublishSettings `env:",prefix=STAGEHAND_PUBLISH_"`
	History HistorySettings `env:",prefix=STAGEHAND_HISTORY_"`
	Run     RunSettings     `env:",prefix=STAGEHAND_RUN_"`
}

// PublishSettings configures the deployment publisher. Token is the push
// credential; Remote overrides the publish target repository. Retries stays
// at zero unless the operator explicitly layers retries on top.
type PublishSettings struct {
	Token       string        `env:"TOKEN"`
	AuthorName  string        `env:"AUTHOR_NAME, default=stagehand"`
	AuthorEmail string        `env:"AUTHOR_EMAIL, default=stagehand@localhost"`
	Remote      string        `env:"REMOTE"`
	Retries     uint          `env:"RETRIES, default=0"`
	RetryDelay  time.Duration `env:"RETRY_DELAY, default=2s"`
}

// HistorySettings configures the run store. An empty DBPath disables it.
type HistorySettings struct {
	DBPath string `env:"DB_PATH"`
}

// RunSettings bounds a whole run. Zero means no deadline.
type RunSettings struct {
	Timeout time.Duration `env:"TIMEOUT, default=0"`
}

// Load reads settings from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("processing environment config: %w", err)
	}
	return &cfg, nil
}
