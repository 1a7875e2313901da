//go:build linux

package main

import (
	"strings"

	"github.com/spf13/pflag"

	"sandrun/internal/sandbox/spec"
	"sandrun/pkg/errors"
)

// options carries launcher-side settings that are not part of the
// child's confinement configuration.
type options struct {
	statsPath string
	logLevel  string
	logFormat string
}

// parseArgs builds the sandbox configuration from the command line,
// layered on top of an optional profile file. Explicit flags override
// profile values; the positional program overrides the profile's
// command.
func parseArgs(name string, args []string) (options, spec.Config, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetInterspersed(false)

	var (
		opts        options
		profilePath string

		memory    = fs.Int64P("memory", "m", 0, "maximum memory address space in kilobytes")
		cpuTime   = fs.Int64P("cpu-time", "t", 0, "maximum CPU time in milliseconds")
		realTime  = fs.Int64P("real-time", "r", 0, "maximum real-time execution time in milliseconds")
		stack     = fs.Int64("stack", 0, "stack size limit in kilobytes (negative for unlimited)")
		fileSize  = fs.Int64P("file-size", "f", 0, "maximum size in kilobytes of created or modified files")
		processes = fs.Int64P("processes", "p", 0, "number of threads or processes the program can use")

		stdin          = fs.String("stdin", "", "redirect a file to the program's stdin")
		stdout         = fs.String("stdout", "", "redirect the program's stdout to a file")
		stderr         = fs.String("stderr", "", "redirect the program's stderr to a file")
		stderrToStdout = fs.Bool("stderr-to-stdout", false, "redirect the program's stderr to stdout")

		fsReadOnly  = fs.StringArray("fs-readonly", nil, "allow reading files or folders under the path")
		fsWriteOnly = fs.StringArray("fs-writeonly", nil, "allow writing files or folders under the path")
		fsReadWrite = fs.StringArray("fs-readwrite", nil, "allow reading and writing files or folders under the path")

		seccompDefault = fs.String("seccomp-default", "", "default syscall policy: allow, deny, kill or none")
		seccompAllow   = fs.StringArray("seccomp-allow", nil, "always allow the syscall")
		seccompDeny    = fs.StringArray("seccomp-deny", nil, "deny the syscall with a permission error")
		seccompKill    = fs.StringArray("seccomp-kill", nil, "kill the program on the syscall")

		envPairs = fs.StringArray("env", nil, "set an environment variable (KEY=VALUE)")
		emptyEnv = fs.Bool("empty-env", false, "do not inherit the launcher's environment")
		dropCaps = fs.Bool("drop-caps", false, "drop the program's capabilities")
	)

	fs.StringVarP(&opts.statsPath, "stats", "s", "", "save execution statistics to a file")
	fs.StringVar(&profilePath, "profile", "", "load defaults from a YAML profile")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "launcher log level")
	fs.StringVar(&opts.logFormat, "log-format", "console", "launcher log format: console or json")

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return options{}, spec.Config{}, err
		}
		return options{}, spec.Config{}, errors.Wrap(err, errors.ConfigInvalid, "parse flags")
	}

	var cfg spec.Config
	if profilePath != "" {
		profile, err := spec.LoadProfile(profilePath)
		if err != nil {
			return options{}, spec.Config{}, err
		}
		cfg = profile.Config()
		if argv, err := profile.CommandLine(); err != nil {
			return options{}, spec.Config{}, err
		} else if len(argv) > 0 {
			cfg.Program, cfg.Args = argv[0], argv[1:]
		}
	}

	if fs.Changed("memory") {
		cfg.Limits.MemoryKB = *memory
	}
	if fs.Changed("cpu-time") {
		cfg.Limits.CPUTimeMs = *cpuTime
	}
	if fs.Changed("real-time") {
		cfg.Limits.RealTimeMs = *realTime
	}
	if fs.Changed("stack") {
		cfg.Limits.StackKB = *stack
	}
	if fs.Changed("file-size") {
		cfg.Limits.FileSizeKB = *fileSize
	}
	if fs.Changed("processes") {
		cfg.Limits.MaxProcesses = *processes
	}
	if fs.Changed("stdin") {
		cfg.Streams.StdinPath = *stdin
	}
	if fs.Changed("stdout") {
		cfg.Streams.StdoutPath = *stdout
	}
	if fs.Changed("stderr") {
		cfg.Streams.StderrPath = *stderr
	}
	if fs.Changed("stderr-to-stdout") {
		cfg.Streams.StderrToStdout = *stderrToStdout
	}
	if fs.Changed("fs-readonly") {
		cfg.Filesystem.ReadOnly = *fsReadOnly
	}
	if fs.Changed("fs-writeonly") {
		cfg.Filesystem.WriteOnly = *fsWriteOnly
	}
	if fs.Changed("fs-readwrite") {
		cfg.Filesystem.ReadWrite = *fsReadWrite
	}
	if fs.Changed("seccomp-default") {
		cfg.Syscalls.DefaultAction = spec.SeccompAction(strings.ToLower(*seccompDefault))
	}
	if fs.Changed("seccomp-allow") {
		cfg.Syscalls.Allow = *seccompAllow
	}
	if fs.Changed("seccomp-deny") {
		cfg.Syscalls.Deny = *seccompDeny
	}
	if fs.Changed("seccomp-kill") {
		cfg.Syscalls.Kill = *seccompKill
	}
	if fs.Changed("empty-env") {
		cfg.EmptyEnv = *emptyEnv
	}
	if fs.Changed("drop-caps") {
		cfg.DropCaps = *dropCaps
	}
	if fs.Changed("env") {
		cfg.Env = nil
		for _, pair := range *envPairs {
			kv, err := spec.ParseEnvOverride(pair)
			if err != nil {
				return options{}, spec.Config{}, err
			}
			cfg.Env = append(cfg.Env, kv)
		}
	}

	if rest := fs.Args(); len(rest) > 0 {
		cfg.Program, cfg.Args = rest[0], rest[1:]
	}
	if cfg.Program == "" {
		return options{}, spec.Config{}, errors.New(errors.ConfigInvalid,
			"no program given on the command line or in the profile")
	}
	return opts, cfg, nil
}
