//go:build linux

package syscallfilter

import (
	seccomp "github.com/seccomp/libseccomp-golang"

	"sandrun/internal/sandbox/spec"
	"sandrun/pkg/errors"
)

// EPERM, reported to the denied caller instead of executing the call.
const denyErrno = 1

// Install builds the seccomp filter for the policy and loads it into
// the kernel. The filter must be active before the target program can
// issue any confined syscall; installation failure is fatal.
func Install(policy spec.SyscallPolicy) error {
	plan, active, err := Resolve(policy)
	if err != nil {
		return err
	}
	if !active {
		return nil
	}

	filter, err := seccomp.NewFilter(scmpAction(plan.Default))
	if err != nil {
		return errors.Wrap(err, errors.SetupFailed, "create seccomp filter")
	}
	defer filter.Release()

	for _, rule := range plan.Rules {
		call, err := seccomp.GetSyscallFromName(rule.Name)
		if err != nil {
			return errors.Wrapf(err, errors.SetupFailed, "resolve syscall %q", rule.Name)
		}
		if err := filter.AddRule(call, scmpAction(rule.Action)); err != nil {
			return errors.Wrapf(err, errors.SetupFailed, "add seccomp rule for %q", rule.Name)
		}
	}

	// libseccomp sets no_new_privs before loading, so an unprivileged
	// process may install the filter.
	if err := filter.Load(); err != nil {
		return errors.Wrap(err, errors.SetupFailed, "load seccomp filter")
	}
	return nil
}

// ValidateNames resolves every configured syscall name against
// libseccomp's table, so unknown names surface as configuration errors
// before the launch instead of failing deep inside the pipeline.
func ValidateNames(policy spec.SyscallPolicy) error {
	if policy.DefaultAction == spec.ActionNone || policy.DefaultAction == spec.ActionUnset {
		return nil
	}
	for _, group := range [][]string{policy.Allow, policy.Deny, policy.Kill} {
		for _, name := range group {
			if _, err := seccomp.GetSyscallFromName(name); err != nil {
				return errors.Wrapf(err, errors.ConfigInvalid, "unknown syscall %q", name)
			}
		}
	}
	return nil
}

func scmpAction(action Action) seccomp.ScmpAction {
	switch action {
	case DenyErrno:
		return seccomp.ActErrno.SetReturnCode(denyErrno)
	case KillProcess:
		return seccomp.ActKillProcess
	default:
		return seccomp.ActAllow
	}
}
