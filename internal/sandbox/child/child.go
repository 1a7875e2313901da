//go:build linux

// Package child runs the confinement pipeline inside the forked child
// and hands control to the target program.
//
// The pipeline is a one-way sequence of gates: resource limits, the
// syscall filter, redirection-target opening, the filesystem lockdown,
// the privilege drop, stream attachment, environment assembly, and
// finally the image replacement. Each gate either succeeds or aborts
// the launch; there is no partial-confinement fallback.
package child

import (
	"os"

	"golang.org/x/sys/unix"

	"sandrun/internal/sandbox/fsjail"
	"sandrun/internal/sandbox/privilege"
	"sandrun/internal/sandbox/rlimit"
	"sandrun/internal/sandbox/spec"
	"sandrun/internal/sandbox/stream"
	"sandrun/internal/sandbox/syscallfilter"
	"sandrun/pkg/errors"
)

// Run applies the confinement pipeline and replaces the process image
// with the target program. It only returns on failure, before the
// target has executed a single instruction.
func Run(cfg spec.Config) error {
	if err := rlimit.Apply(cfg.Limits); err != nil {
		return err
	}

	// The filter is self-contained, but it is installed ahead of the
	// filesystem lockdown so the filtering mechanism can never be
	// blocked by it.
	if err := syscallfilter.Install(cfg.Syscalls); err != nil {
		return err
	}

	// Redirection targets may live outside the granted path set, so
	// they are opened while the filesystem is still unrestricted.
	redirector, err := stream.Open(cfg.Streams)
	if err != nil {
		return err
	}

	if err := fsjail.Apply(cfg.Filesystem); err != nil {
		return err
	}

	if cfg.DropCaps {
		if err := privilege.Drop(); err != nil {
			return err
		}
	}

	if err := redirector.Attach(); err != nil {
		return err
	}

	env := cfg.BuildEnviron(os.Environ())

	if err := unix.Exec(cfg.Program, cfg.Argv(), env); err != nil {
		return errors.Wrapf(err, errors.ExecFailed, "exec %q", cfg.Program)
	}
	return nil
}
