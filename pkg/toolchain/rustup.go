package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/systemstart/stagehand/pkg/api"
)

// Rustup provisions rust toolchains through the rustup binary: install the
// channel, then optionally pin it as the directory override so every later
// cargo invocation picks it up.
type Rustup struct {
	// Binary overrides the executable looked up on PATH. Tests use it.
	Binary string
}

func NewRustup() *Rustup {
	return &Rustup{}
}

func (r *Rustup) Name() string {
	return "rust"
}

func (r *Rustup) Install(ctx context.Context, spec api.ToolchainConfig, dir string) (*Handle, error) {
	binary := r.Binary
	if binary == "" {
		binary = "rustup"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("rustup binary not found: %w", err)
	}

	if err := r.rustup(ctx, path, dir, "toolchain", "install", spec.Channel); err != nil {
		return nil, err
	}

	env := map[string]string{}
	if spec.Override {
		if err := r.rustup(ctx, path, dir, "override", "set", spec.Channel); err != nil {
			return nil, err
		}
		// Subprocesses that never consult the override file still see the
		// selected channel through the environment.
		env["RUSTUP_TOOLCHAIN"] = spec.Channel
	}

	slog.Info("toolchain provisioned", "name", spec.Name, "channel", spec.Channel, "override", spec.Override)
	return &Handle{Name: spec.Name, Channel: spec.Channel, Env: env}, nil
}

func (r *Rustup) rustup(ctx context.Context, path, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("running rustup", "args", args)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("rustup %s failed: %w\nstderr: %s", strings.Join(args, " "), err, stderr.String())
	}
	return nil
}
