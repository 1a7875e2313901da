//go:build linux

// Package rlimit translates the configured resource budgets into
// setrlimit calls on the current process.
package rlimit

import (
	"fmt"

	"golang.org/x/sys/unix"

	"sandrun/internal/sandbox/spec"
	"sandrun/pkg/errors"
)

// Rule is one resolved rlimit to install, hard and soft set equal.
type Rule struct {
	Resource int
	Limit    unix.Rlimit
}

// Rules resolves the budgets into the rlimit set to install. The
// core-dump limit is always forced to zero; it is not configurable.
func Rules(limits spec.Limits) []Rule {
	var rules []Rule

	if limits.MemoryKB > 0 {
		bytes := uint64(limits.MemoryKB) * 1000
		rules = append(rules, Rule{unix.RLIMIT_AS, unix.Rlimit{Cur: bytes, Max: bytes}})
	}
	if limits.StackKB > 0 {
		bytes := uint64(limits.StackKB) * 1000
		rules = append(rules, Rule{unix.RLIMIT_STACK, unix.Rlimit{Cur: bytes, Max: bytes}})
	} else if limits.StackKB < 0 {
		rules = append(rules, Rule{unix.RLIMIT_STACK, unix.Rlimit{Cur: unix.RLIM_INFINITY, Max: unix.RLIM_INFINITY}})
	}
	if limits.CPUTimeMs > 0 {
		// Rounded up so sub-second budgets still get a full second of
		// kernel-enforced CPU time.
		seconds := uint64((limits.CPUTimeMs + 999) / 1000)
		rules = append(rules, Rule{unix.RLIMIT_CPU, unix.Rlimit{Cur: seconds, Max: seconds}})
	}
	if limits.FileSizeKB > 0 {
		bytes := uint64(limits.FileSizeKB) * 1000
		rules = append(rules, Rule{unix.RLIMIT_FSIZE, unix.Rlimit{Cur: bytes, Max: bytes}})
	}
	if limits.MaxProcesses > 0 {
		count := uint64(limits.MaxProcesses)
		rules = append(rules, Rule{unix.RLIMIT_NPROC, unix.Rlimit{Cur: count, Max: count}})
	}

	rules = append(rules, Rule{unix.RLIMIT_CORE, unix.Rlimit{Cur: 0, Max: 0}})
	return rules
}

// Apply installs every resolved rlimit on the current process. Any
// failure is fatal for the launch.
func Apply(limits spec.Limits) error {
	for _, rule := range Rules(limits) {
		limit := rule.Limit
		if err := unix.Setrlimit(rule.Resource, &limit); err != nil {
			return errors.Wrapf(err, errors.SetupFailed, "setrlimit %s", resourceName(rule.Resource))
		}
	}
	return nil
}

func resourceName(resource int) string {
	switch resource {
	case unix.RLIMIT_AS:
		return "RLIMIT_AS"
	case unix.RLIMIT_STACK:
		return "RLIMIT_STACK"
	case unix.RLIMIT_CPU:
		return "RLIMIT_CPU"
	case unix.RLIMIT_FSIZE:
		return "RLIMIT_FSIZE"
	case unix.RLIMIT_NPROC:
		return "RLIMIT_NPROC"
	case unix.RLIMIT_CORE:
		return "RLIMIT_CORE"
	default:
		return fmt.Sprintf("rlimit(%d)", resource)
	}
}
