package spec

import (
	"os"
	"sort"
	"strings"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"

	"sandrun/pkg/errors"
)

// Profile is a reusable sandbox configuration loaded from a YAML file.
// It mirrors the CLI surface; explicit flags override profile values.
type Profile struct {
	MemoryKB     int64 `yaml:"memory"`
	StackKB      int64 `yaml:"stack"`
	CPUTimeMs    int64 `yaml:"cpuTime"`
	RealTimeMs   int64 `yaml:"realTime"`
	FileSizeKB   int64 `yaml:"fileSize"`
	MaxProcesses int64 `yaml:"processes"`

	FSReadOnly  []string `yaml:"fsReadonly"`
	FSWriteOnly []string `yaml:"fsWriteonly"`
	FSReadWrite []string `yaml:"fsReadwrite"`

	SeccompDefault string   `yaml:"seccompDefault"`
	SeccompAllow   []string `yaml:"seccompAllow"`
	SeccompDeny    []string `yaml:"seccompDeny"`
	SeccompKill    []string `yaml:"seccompKill"`

	DropCaps bool `yaml:"dropCaps"`

	Stdin          string `yaml:"stdin"`
	Stdout         string `yaml:"stdout"`
	Stderr         string `yaml:"stderr"`
	StderrToStdout bool   `yaml:"stderrToStdout"`

	Env      map[string]string `yaml:"env"`
	EmptyEnv bool              `yaml:"emptyEnv"`

	// Command is an optional default target, split shell-style. It is
	// used only when the invocation names no program of its own.
	Command string `yaml:"command"`
}

// LoadProfile reads and parses a profile file.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, errors.Wrapf(err, errors.ConfigInvalid, "read profile %q", path)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, errors.Wrapf(err, errors.ConfigInvalid, "parse profile %q", path)
	}
	return p, nil
}

// CommandLine splits the profile's command string into an argument
// vector. An empty command yields nil.
func (p Profile) CommandLine() ([]string, error) {
	if p.Command == "" {
		return nil, nil
	}
	argv, err := shlex.Split(p.Command)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ConfigInvalid, "split profile command %q", p.Command)
	}
	if len(argv) == 0 {
		return nil, errors.Newf(errors.ConfigInvalid, "profile command %q is empty", p.Command)
	}
	return argv, nil
}

// Config converts the profile into a baseline Config. Env overrides are
// emitted in sorted-stable order as produced by the YAML mapping.
func (p Profile) Config() Config {
	cfg := Config{
		Limits: Limits{
			MemoryKB:     p.MemoryKB,
			StackKB:      p.StackKB,
			CPUTimeMs:    p.CPUTimeMs,
			RealTimeMs:   p.RealTimeMs,
			FileSizeKB:   p.FileSizeKB,
			MaxProcesses: p.MaxProcesses,
		},
		Filesystem: FilesystemPolicy{
			ReadOnly:  p.FSReadOnly,
			WriteOnly: p.FSWriteOnly,
			ReadWrite: p.FSReadWrite,
		},
		Syscalls: SyscallPolicy{
			DefaultAction: SeccompAction(strings.ToLower(p.SeccompDefault)),
			Allow:         p.SeccompAllow,
			Deny:          p.SeccompDeny,
			Kill:          p.SeccompKill,
		},
		DropCaps: p.DropCaps,
		Streams: StreamPolicy{
			StdinPath:      p.Stdin,
			StdoutPath:     p.Stdout,
			StderrPath:     p.Stderr,
			StderrToStdout: p.StderrToStdout,
		},
		EmptyEnv: p.EmptyEnv,
	}
	for _, key := range sortedKeys(p.Env) {
		cfg.Env = append(cfg.Env, EnvVar{Key: key, Value: p.Env[key]})
	}
	return cfg
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
