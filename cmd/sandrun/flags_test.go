//go:build linux

package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"sandrun/internal/sandbox/spec"
)

func TestParseArgs(t *testing.T) {
	opts, cfg, err := parseArgs("sandrun", []string{
		"-m", "262144",
		"-t", "2000",
		"-r", "5000",
		"--stack", "-1",
		"-f", "1024",
		"-p", "4",
		"--stdin", "/dev/null",
		"--stdout", "out.txt",
		"--stderr-to-stdout",
		"--fs-readonly", "/usr",
		"--fs-readonly", "/lib",
		"--fs-readwrite", "/tmp",
		"--seccomp-default", "deny",
		"--seccomp-allow", "read",
		"--seccomp-kill", "ptrace",
		"--env", "LANG=C",
		"--empty-env",
		"--drop-caps",
		"-s", "stats.json",
		"/usr/bin/python3", "-I", "solution.py",
	})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}

	if opts.statsPath != "stats.json" {
		t.Errorf("statsPath = %q", opts.statsPath)
	}
	want := spec.Limits{
		MemoryKB: 262144, CPUTimeMs: 2000, RealTimeMs: 5000,
		StackKB: -1, FileSizeKB: 1024, MaxProcesses: 4,
	}
	if cfg.Limits != want {
		t.Errorf("limits = %+v, want %+v", cfg.Limits, want)
	}
	if !reflect.DeepEqual(cfg.Filesystem.ReadOnly, []string{"/usr", "/lib"}) ||
		!reflect.DeepEqual(cfg.Filesystem.ReadWrite, []string{"/tmp"}) {
		t.Errorf("filesystem = %+v", cfg.Filesystem)
	}
	if cfg.Syscalls.DefaultAction != spec.ActionDeny ||
		!reflect.DeepEqual(cfg.Syscalls.Allow, []string{"read"}) ||
		!reflect.DeepEqual(cfg.Syscalls.Kill, []string{"ptrace"}) {
		t.Errorf("syscalls = %+v", cfg.Syscalls)
	}
	if !cfg.EmptyEnv || !cfg.DropCaps || !cfg.Streams.StderrToStdout {
		t.Errorf("flags = emptyEnv %v dropCaps %v stderrToStdout %v",
			cfg.EmptyEnv, cfg.DropCaps, cfg.Streams.StderrToStdout)
	}
	if !reflect.DeepEqual(cfg.Env, []spec.EnvVar{{Key: "LANG", Value: "C"}}) {
		t.Errorf("env = %v", cfg.Env)
	}
	if cfg.Program != "/usr/bin/python3" || !reflect.DeepEqual(cfg.Args, []string{"-I", "solution.py"}) {
		t.Errorf("program = %q args = %v", cfg.Program, cfg.Args)
	}
}

func TestParseArgsProgramFlagsNotInterspersed(t *testing.T) {
	// Everything after the program belongs to the program, even if it
	// looks like a launcher flag.
	_, cfg, err := parseArgs("sandrun", []string{"/bin/echo", "-m", "hello"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if cfg.Program != "/bin/echo" || !reflect.DeepEqual(cfg.Args, []string{"-m", "hello"}) {
		t.Fatalf("program = %q args = %v", cfg.Program, cfg.Args)
	}
	if cfg.Limits.MemoryKB != 0 {
		t.Fatalf("memory = %d, want 0", cfg.Limits.MemoryKB)
	}
}

func TestParseArgsSeccompDefaultCaseInsensitive(t *testing.T) {
	for _, value := range []string{"deny", "DENY", "Deny"} {
		_, cfg, err := parseArgs("sandrun", []string{"--seccomp-default", value, "/bin/true"})
		if err != nil {
			t.Fatalf("parseArgs(%q): %v", value, err)
		}
		if cfg.Syscalls.DefaultAction != spec.ActionDeny {
			t.Errorf("seccomp default for %q = %q, want %q", value, cfg.Syscalls.DefaultAction, spec.ActionDeny)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate after %q: %v", value, err)
		}
	}
}

func TestParseArgsMissingProgram(t *testing.T) {
	if _, _, err := parseArgs("sandrun", []string{"-m", "1024"}); err == nil {
		t.Fatal("parseArgs(no program) = nil error")
	}
}

func TestParseArgsBadEnv(t *testing.T) {
	if _, _, err := parseArgs("sandrun", []string{"--env", "NOVALUE", "/bin/true"}); err == nil {
		t.Fatal("parseArgs(bad env) = nil error")
	}
}

func TestParseArgsProfileLayering(t *testing.T) {
	profile := filepath.Join(t.TempDir(), "profile.yaml")
	content := `
memory: 1024
cpuTime: 1000
dropCaps: true
command: /bin/sleep 10
`
	if err := os.WriteFile(profile, []byte(content), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	// Profile alone supplies limits and the command.
	_, cfg, err := parseArgs("sandrun", []string{"--profile", profile})
	if err != nil {
		t.Fatalf("parseArgs(profile only): %v", err)
	}
	if cfg.Program != "/bin/sleep" || !reflect.DeepEqual(cfg.Args, []string{"10"}) {
		t.Errorf("profile command = %q %v", cfg.Program, cfg.Args)
	}
	if cfg.Limits.MemoryKB != 1024 || cfg.Limits.CPUTimeMs != 1000 || !cfg.DropCaps {
		t.Errorf("profile config = %+v", cfg)
	}

	// Explicit flags and positionals override the profile.
	_, cfg, err = parseArgs("sandrun", []string{"--profile", profile, "-m", "2048", "/bin/true"})
	if err != nil {
		t.Fatalf("parseArgs(profile + overrides): %v", err)
	}
	if cfg.Limits.MemoryKB != 2048 {
		t.Errorf("memory = %d, want flag override 2048", cfg.Limits.MemoryKB)
	}
	if cfg.Limits.CPUTimeMs != 1000 {
		t.Errorf("cpuTime = %d, want profile value 1000", cfg.Limits.CPUTimeMs)
	}
	if cfg.Program != "/bin/true" || len(cfg.Args) != 0 {
		t.Errorf("program = %q %v, want positional override", cfg.Program, cfg.Args)
	}
}
