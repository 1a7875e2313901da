//go:build linux

// Command sandrun runs a program under kernel-enforced confinement:
// resource limits, a Landlock filesystem ruleset, a seccomp syscall
// filter, capability dropping and stream redirection, then reports
// execution statistics including limit-triggered termination.
//
// The binary re-executes itself in a hidden child mode that applies
// the confinement pipeline and replaces its image with the target.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"sandrun/internal/sandbox/child"
	"sandrun/internal/sandbox/spec"
	"sandrun/internal/sandbox/supervisor"
	"sandrun/internal/sandbox/syscallfilter"
	"sandrun/pkg/utils/logger"
)

const (
	// Exit status for configuration errors: the child never starts.
	exitConfigError = 2
	// Exit status reported by the child when a confinement step or the
	// final exec fails before the target runs.
	exitChildAbort = 125
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == supervisor.ChildInitArg {
		runChildInit()
	}
	os.Exit(run(os.Args[1:]))
}

// runChildInit is the child side of the fork: read the configuration
// handed over by the supervisor, run the setup pipeline and exec the
// target. Never returns.
func runChildInit() {
	cfgFile := os.NewFile(supervisor.ConfigFD, "sandbox-config")
	var cfg spec.Config
	if err := json.NewDecoder(cfgFile).Decode(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "sandrun: decode child config: %v\n", err)
		os.Exit(exitChildAbort)
	}
	cfgFile.Close()

	err := child.Run(cfg)
	// Only reachable on failure; on success the process image is gone.
	fmt.Fprintf(os.Stderr, "sandrun: %v\n", err)
	os.Exit(exitChildAbort)
}

func run(args []string) int {
	opts, cfg, err := parseArgs("sandrun", args)
	if err == pflag.ErrHelp {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "sandrun: %v\n", err)
		return exitConfigError
	}

	if err := logger.Init(logger.Config{Level: opts.logLevel, Format: opts.logFormat}); err != nil {
		fmt.Fprintf(os.Stderr, "sandrun: %v\n", err)
		return exitConfigError
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "sandrun: %v\n", err)
		return exitConfigError
	}
	if err := syscallfilter.ValidateNames(cfg.Syscalls); err != nil {
		fmt.Fprintf(os.Stderr, "sandrun: %v\n", err)
		return exitConfigError
	}

	sup := supervisor.New("", logger.L())
	res, err := sup.Run(cfg)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		return exitChildAbort
	}

	if opts.statsPath != "" {
		if err := res.WriteFile(opts.statsPath); err != nil {
			logger.Error("write stats", zap.Error(err))
			return exitChildAbort
		}
	}
	return res.ExitCode
}
