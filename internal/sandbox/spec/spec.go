// Package spec defines the sandbox configuration consumed by the
// child-setup pipeline and the supervisor.
package spec

import (
	"os"
	"path/filepath"
	"strings"

	"sandrun/pkg/errors"
)

// SeccompAction names a syscall-filter default action.
type SeccompAction string

const (
	// ActionUnset leaves the hardened default in place: everything is
	// allowed except the kill syscall, which fails with EPERM.
	ActionUnset SeccompAction = ""
	ActionAllow SeccompAction = "allow"
	ActionDeny  SeccompAction = "deny"
	ActionKill  SeccompAction = "kill"
	// ActionNone disables syscall filtering entirely.
	ActionNone SeccompAction = "none"
)

// Limits holds the numeric resource budgets. A zero value means the
// corresponding limit is left unset; StackKB may be negative to request
// an unbounded stack.
type Limits struct {
	MemoryKB     int64 `json:"memory_kb"`
	StackKB      int64 `json:"stack_kb"`
	CPUTimeMs    int64 `json:"cpu_time_ms"`
	RealTimeMs   int64 `json:"real_time_ms"`
	FileSizeKB   int64 `json:"file_size_kb"`
	MaxProcesses int64 `json:"max_processes"`
}

// FilesystemPolicy lists the paths the child may touch, split by the
// access granted. Entries may overlap across sets; overlapping paths
// union their rule bits.
type FilesystemPolicy struct {
	ReadOnly  []string `json:"read_only"`
	WriteOnly []string `json:"write_only"`
	ReadWrite []string `json:"read_write"`
}

// Empty reports whether no filesystem restriction was requested.
func (p FilesystemPolicy) Empty() bool {
	return len(p.ReadOnly) == 0 && len(p.WriteOnly) == 0 && len(p.ReadWrite) == 0
}

// SyscallPolicy configures the seccomp filter.
type SyscallPolicy struct {
	DefaultAction SeccompAction `json:"default_action"`
	Allow         []string      `json:"allow"`
	Deny          []string      `json:"deny"`
	Kill          []string      `json:"kill"`
}

// StreamPolicy configures standard stream redirection. Empty paths
// leave the corresponding stream inherited from the launcher.
type StreamPolicy struct {
	StdinPath      string `json:"stdin_path"`
	StdoutPath     string `json:"stdout_path"`
	StderrPath     string `json:"stderr_path"`
	StderrToStdout bool   `json:"stderr_to_stdout"`
}

// EnvVar is one explicit environment override.
type EnvVar struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Config is the validated sandbox configuration. It is built once by
// the CLI layer and treated as immutable afterwards.
type Config struct {
	Limits     Limits           `json:"limits"`
	Filesystem FilesystemPolicy `json:"filesystem"`
	Syscalls   SyscallPolicy    `json:"syscalls"`
	DropCaps   bool             `json:"drop_caps"`
	Streams    StreamPolicy     `json:"streams"`
	Env        []EnvVar         `json:"env"`
	EmptyEnv   bool             `json:"empty_env"`
	Program    string           `json:"program"`
	Args       []string         `json:"args"`
}

// Argv builds the argument vector for the target program. argv[0] is
// always the executable's base name regardless of the invocation path.
func (c Config) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, filepath.Base(c.Program))
	argv = append(argv, c.Args...)
	return argv
}

// BuildEnviron assembles the target's environment: start empty, seed
// with the inherited environment unless EmptyEnv is set, then apply the
// explicit overrides. Overrides always win; a key given more than once
// keeps its last value.
func (c Config) BuildEnviron(inherited []string) []string {
	overridden := make(map[string]string, len(c.Env))
	var order []string
	for _, kv := range c.Env {
		if _, seen := overridden[kv.Key]; !seen {
			order = append(order, kv.Key)
		}
		overridden[kv.Key] = kv.Value
	}

	var env []string
	if !c.EmptyEnv {
		for _, entry := range inherited {
			key, _, ok := strings.Cut(entry, "=")
			if !ok {
				continue
			}
			if _, hidden := overridden[key]; hidden {
				continue
			}
			env = append(env, entry)
		}
	}
	for _, key := range order {
		env = append(env, key+"="+overridden[key])
	}
	return env
}

// Validate checks the configuration's structural invariants. Kernel
// availability of the requested mechanisms is not checked here; that is
// the pipeline's job. All violations carry errors.ConfigInvalid.
func (c Config) Validate() error {
	if c.Program == "" {
		return errors.New(errors.ConfigInvalid, "target program is required")
	}
	switch c.Syscalls.DefaultAction {
	case ActionUnset, ActionAllow, ActionDeny, ActionKill, ActionNone:
	default:
		return errors.Newf(errors.ConfigInvalid,
			"unknown seccomp default action %q", c.Syscalls.DefaultAction)
	}
	for _, kv := range c.Env {
		if kv.Key == "" || strings.Contains(kv.Key, "=") {
			return errors.Newf(errors.ConfigInvalid, "invalid environment key %q", kv.Key)
		}
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	return nil
}

// validatePaths requires rule paths and the stdin source to exist at
// configuration time. Redirection destinations are created later, so
// only their parent has to be usable; that failure surfaces as a
// SetupFailure instead.
func (c Config) validatePaths() error {
	for _, group := range []struct {
		name  string
		paths []string
	}{
		{"read-only", c.Filesystem.ReadOnly},
		{"write-only", c.Filesystem.WriteOnly},
		{"read-write", c.Filesystem.ReadWrite},
	} {
		for _, path := range group.paths {
			if _, err := os.Stat(path); err != nil {
				return errors.Wrapf(err, errors.ConfigInvalid,
					"%s rule path %q", group.name, path)
			}
		}
	}
	if c.Streams.StdinPath != "" {
		info, err := os.Stat(c.Streams.StdinPath)
		if err != nil {
			return errors.Wrapf(err, errors.ConfigInvalid,
				"stdin source %q", c.Streams.StdinPath)
		}
		if info.IsDir() {
			return errors.Newf(errors.ConfigInvalid,
				"stdin source %q is a directory", c.Streams.StdinPath)
		}
	}
	return nil
}

// ParseEnvOverride splits a KEY=VALUE flag argument.
func ParseEnvOverride(arg string) (EnvVar, error) {
	key, value, ok := strings.Cut(arg, "=")
	if !ok || key == "" {
		return EnvVar{}, errors.Newf(errors.ConfigInvalid,
			"environment override %q is not KEY=VALUE", arg)
	}
	return EnvVar{Key: key, Value: value}, nil
}

func (a SeccompAction) String() string {
	if a == ActionUnset {
		return "<unset>"
	}
	return string(a)
}
