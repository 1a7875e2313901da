//go:build linux

// Package stream rewires the child's standard streams to files.
//
// Redirection runs in two phases around the filesystem lockdown: the
// target files are opened while the filesystem is still unrestricted,
// and only duplicated onto descriptors 0/1/2 after the remaining
// confinement is in place. Open-before-restrict, duplicate-after-
// restrict.
package stream

import (
	"os"

	"golang.org/x/sys/unix"

	"sandrun/internal/sandbox/spec"
	"sandrun/pkg/errors"
)

// Redirector holds the opened redirection targets between the two
// phases.
type Redirector struct {
	policy spec.StreamPolicy
	stdin  *os.File
	stdout *os.File
	stderr *os.File
}

// Open opens every configured redirection target. The stdin source
// must exist; stdout and stderr destinations are created if missing and
// truncated if present.
func Open(policy spec.StreamPolicy) (*Redirector, error) {
	r := &Redirector{policy: policy}
	var err error
	if policy.StdinPath != "" {
		r.stdin, err = os.OpenFile(policy.StdinPath, os.O_RDONLY, 0)
		if err != nil {
			return nil, errors.Wrapf(err, errors.SetupFailed, "open stdin source %q", policy.StdinPath)
		}
	}
	if policy.StdoutPath != "" {
		r.stdout, err = os.OpenFile(policy.StdoutPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, errors.SetupFailed, "open stdout target %q", policy.StdoutPath)
		}
	}
	if policy.StderrPath != "" {
		r.stderr, err = os.OpenFile(policy.StderrPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, errors.SetupFailed, "open stderr target %q", policy.StderrPath)
		}
	}
	return r, nil
}

// Attach duplicates each opened target onto its standard descriptor
// and closes the original handle. A requested stderr-to-stdout merge
// runs last and overrides any explicit stderr target.
func (r *Redirector) Attach() error {
	if r.stdin != nil {
		if err := dupOnto(r.stdin, 0); err != nil {
			return errors.Wrap(err, errors.SetupFailed, "redirect stdin")
		}
	}
	if r.stdout != nil {
		if err := dupOnto(r.stdout, 1); err != nil {
			return errors.Wrap(err, errors.SetupFailed, "redirect stdout")
		}
	}
	if r.stderr != nil {
		if err := dupOnto(r.stderr, 2); err != nil {
			return errors.Wrap(err, errors.SetupFailed, "redirect stderr")
		}
	}
	if r.policy.StderrToStdout {
		if err := unix.Dup2(1, 2); err != nil {
			return errors.Wrap(err, errors.SetupFailed, "merge stderr into stdout")
		}
	}
	return nil
}

func dupOnto(file *os.File, fd int) error {
	if err := unix.Dup2(int(file.Fd()), fd); err != nil {
		return err
	}
	return file.Close()
}
