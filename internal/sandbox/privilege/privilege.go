//go:build linux

// Package privilege strips the process's ambient privilege.
package privilege

import (
	"golang.org/x/sys/unix"
	"kernel.org/pub/linux/libs/security/libcap/cap"

	"sandrun/pkg/errors"
)

// Drop clears the permitted, inheritable and effective capability sets
// and raises the no-new-privileges flag, so executing a setuid or
// setcap program image cannot regain privilege. Irreversible for the
// remaining process lifetime.
func Drop() error {
	if err := cap.NewSet().SetProc(); err != nil {
		return errors.Wrap(err, errors.SetupFailed, "clear capability sets")
	}
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return errors.Wrap(err, errors.SetupFailed, "set no_new_privs")
	}
	return nil
}
