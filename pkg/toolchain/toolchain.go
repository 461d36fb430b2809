// Package toolchain provisions the language toolchain a job declares before
// any of its steps run. Provisioning is fatal on failure: the job must not
// start half-equipped.
package toolchain

import (
	"context"
	"fmt"

	"github.com/systemstart/stagehand/pkg/api"
)

// Handle is what a successful provision hands back: the environment the
// job's steps must inherit so the toolchain is in effect for them.
type Handle struct {
	Name    string
	Channel string
	Env     map[string]string
}

// Error is a fatal provisioning failure.
type Error struct {
	Toolchain string
	Channel   string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provisioning toolchain %s@%s: %v", e.Toolchain, e.Channel, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Installer provisions one toolchain family.
type Installer interface {
	Name() string
	Install(ctx context.Context, spec api.ToolchainConfig, dir string) (*Handle, error)
}

// Registry dispatches toolchain specs to installers by name.
type Registry struct {
	installers map[string]Installer
}

func NewRegistry(installers ...Installer) *Registry {
	r := &Registry{installers: make(map[string]Installer)}
	for _, inst := range installers {
		r.installers[inst.Name()] = inst
	}
	return r
}

// DefaultRegistry knows the built-in installers.
func DefaultRegistry() *Registry {
	return NewRegistry(NewRustup())
}

// Provision installs and selects the requested toolchain in dir. Every
// failure comes back as *Error; callers treat it as fatal for the job.
func (r *Registry) Provision(ctx context.Context, spec api.ToolchainConfig, dir string) (*Handle, error) {
	inst, ok := r.installers[spec.Name]
	if !ok {
		return nil, &Error{
			Toolchain: spec.Name,
			Channel:   spec.Channel,
			Err:       fmt.Errorf("no installer registered for toolchain %q", spec.Name),
		}
	}

	handle, err := inst.Install(ctx, spec, dir)
	if err != nil {
		if provErr, ok := err.(*Error); ok {
			return nil, provErr
		}
		return nil, &Error{Toolchain: spec.Name, Channel: spec.Channel, Err: err}
	}
	return handle, nil
}
