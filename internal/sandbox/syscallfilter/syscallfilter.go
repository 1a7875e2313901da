// Package syscallfilter builds and installs the seccomp syscall
// filter.
//
// With an explicit default action the configured allow/deny/kill name
// lists become per-syscall rules: denied syscalls fail with EPERM
// instead of executing, kill-listed syscalls terminate the whole
// process. With no default configured a narrower hardening filter is
// installed instead: everything is allowed except the kill syscall,
// which fails with EPERM. "none" disables filtering entirely.
package syscallfilter

import (
	"sandrun/internal/sandbox/spec"
	"sandrun/pkg/errors"
)

// Action is a resolved filter action.
type Action int

const (
	Allow Action = iota
	// DenyErrno rejects the syscall with EPERM, reported to the caller.
	DenyErrno
	// KillProcess terminates the whole process immediately.
	KillProcess
)

// Rule binds one syscall name to an action.
type Rule struct {
	Name   string
	Action Action
}

// Plan is the resolved filter program, independent of the kernel
// loading mechanism.
type Plan struct {
	Default Action
	Rules   []Rule
}

// Resolve translates the policy into a filter plan. The second return
// is false when no filter should be installed at all.
func Resolve(policy spec.SyscallPolicy) (Plan, bool, error) {
	switch policy.DefaultAction {
	case spec.ActionNone:
		return Plan{}, false, nil

	case spec.ActionUnset:
		// Hardened default: allow everything, deny only self-directed
		// kill. The configured name lists do not apply here.
		return Plan{
			Default: Allow,
			Rules:   []Rule{{Name: "kill", Action: DenyErrno}},
		}, true, nil

	case spec.ActionAllow, spec.ActionDeny, spec.ActionKill:
		plan := Plan{Default: defaultAction(policy.DefaultAction)}
		for _, name := range policy.Allow {
			plan.Rules = append(plan.Rules, Rule{Name: name, Action: Allow})
		}
		for _, name := range policy.Deny {
			plan.Rules = append(plan.Rules, Rule{Name: name, Action: DenyErrno})
		}
		for _, name := range policy.Kill {
			plan.Rules = append(plan.Rules, Rule{Name: name, Action: KillProcess})
		}
		return plan, true, nil

	default:
		return Plan{}, false, errors.Newf(errors.ConfigInvalid,
			"unknown seccomp default action %q", policy.DefaultAction)
	}
}

func defaultAction(action spec.SeccompAction) Action {
	switch action {
	case spec.ActionDeny:
		return DenyErrno
	case spec.ActionKill:
		return KillProcess
	default:
		return Allow
	}
}
