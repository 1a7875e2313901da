//go:build linux

// Package fsjail installs a least-privilege Landlock ruleset built from
// the configured read-only, write-only and read-write path sets. Once
// applied the restriction is irrevocable for the process lifetime.
package fsjail

import (
	"os"

	"github.com/landlock-lsm/go-landlock/landlock"
	llsys "github.com/landlock-lsm/go-landlock/landlock/syscall"

	"sandrun/internal/sandbox/spec"
	"sandrun/pkg/errors"
)

const (
	readFileAccess  = landlock.AccessFSSet(llsys.AccessFSReadFile | llsys.AccessFSExecute)
	writeFileAccess = landlock.AccessFSSet(llsys.AccessFSWriteFile)

	// Directory entries additionally get listing and, for writable
	// sets, entry creation and removal.
	readDirExtra  = landlock.AccessFSSet(llsys.AccessFSReadDir)
	writeDirExtra = landlock.AccessFSSet(llsys.AccessFSReadDir |
		llsys.AccessFSRemoveDir | llsys.AccessFSRemoveFile |
		llsys.AccessFSMakeDir | llsys.AccessFSMakeReg)
)

// PathRule grants one access set to one path.
type PathRule struct {
	Path   string
	Access landlock.AccessFSSet
}

// Rules classifies every configured path as file or directory by its
// current filesystem type and assembles the access bits. Overlapping
// entries across sets are kept as separate rules; Landlock unions them.
func Rules(policy spec.FilesystemPolicy) ([]PathRule, error) {
	var rules []PathRule
	for _, group := range []struct {
		paths      []string
		fileAccess landlock.AccessFSSet
		dirExtra   landlock.AccessFSSet
	}{
		{policy.ReadOnly, readFileAccess, readDirExtra},
		{policy.WriteOnly, writeFileAccess, writeDirExtra},
		{policy.ReadWrite, readFileAccess | writeFileAccess, readDirExtra | writeDirExtra},
	} {
		for _, path := range group.paths {
			info, err := os.Stat(path)
			if err != nil {
				return nil, errors.Wrapf(err, errors.SetupFailed, "stat rule path %q", path)
			}
			access := group.fileAccess
			if info.IsDir() {
				access |= group.dirExtra
			}
			rules = append(rules, PathRule{Path: path, Access: access})
		}
	}
	return rules, nil
}

// Apply activates the ruleset for the remaining lifetime of the
// process. With no configured paths no restriction is installed. The
// restriction is strict: an unsupported kernel is a fatal error, never
// a silent downgrade.
func Apply(policy spec.FilesystemPolicy) error {
	if policy.Empty() {
		return nil
	}
	rules, err := Rules(policy)
	if err != nil {
		return err
	}
	llRules := make([]landlock.Rule, 0, len(rules))
	for _, rule := range rules {
		llRules = append(llRules, landlock.PathAccess(rule.Access, rule.Path))
	}
	if err := landlock.V1.RestrictPaths(llRules...); err != nil {
		return errors.Wrap(err, errors.SetupFailed, "apply landlock ruleset")
	}
	return nil
}
