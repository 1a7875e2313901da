package spec

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleProfile = `
memory: 262144
stack: -1
cpuTime: 2000
realTime: 5000
fileSize: 1024
processes: 4
fsReadonly:
  - /usr
  - /lib
fsReadwrite:
  - /tmp/box
seccompDefault: deny
seccompAllow:
  - read
  - write
seccompKill:
  - ptrace
dropCaps: true
stdin: /tmp/box/input.txt
stdout: /tmp/box/output.txt
stderrToStdout: true
env:
  LANG: C
  HOME: /tmp/box
emptyEnv: true
command: /usr/bin/python3 -I solution.py
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func TestLoadProfile(t *testing.T) {
	p, err := LoadProfile(writeProfile(t, sampleProfile))
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}

	cfg := p.Config()
	if cfg.Limits.MemoryKB != 262144 || cfg.Limits.StackKB != -1 ||
		cfg.Limits.CPUTimeMs != 2000 || cfg.Limits.RealTimeMs != 5000 ||
		cfg.Limits.FileSizeKB != 1024 || cfg.Limits.MaxProcesses != 4 {
		t.Errorf("limits = %+v", cfg.Limits)
	}
	if !reflect.DeepEqual(cfg.Filesystem.ReadOnly, []string{"/usr", "/lib"}) {
		t.Errorf("read-only rules = %v", cfg.Filesystem.ReadOnly)
	}
	if !reflect.DeepEqual(cfg.Filesystem.ReadWrite, []string{"/tmp/box"}) {
		t.Errorf("read-write rules = %v", cfg.Filesystem.ReadWrite)
	}
	if cfg.Syscalls.DefaultAction != ActionDeny {
		t.Errorf("seccomp default = %q", cfg.Syscalls.DefaultAction)
	}
	if !reflect.DeepEqual(cfg.Syscalls.Allow, []string{"read", "write"}) ||
		!reflect.DeepEqual(cfg.Syscalls.Kill, []string{"ptrace"}) {
		t.Errorf("seccomp rules = %+v", cfg.Syscalls)
	}
	if !cfg.DropCaps || !cfg.EmptyEnv || !cfg.Streams.StderrToStdout {
		t.Errorf("flags = dropCaps %v emptyEnv %v stderrToStdout %v",
			cfg.DropCaps, cfg.EmptyEnv, cfg.Streams.StderrToStdout)
	}
	if cfg.Streams.StdinPath != "/tmp/box/input.txt" || cfg.Streams.StdoutPath != "/tmp/box/output.txt" {
		t.Errorf("streams = %+v", cfg.Streams)
	}
	// Env overrides come out in sorted key order.
	wantEnv := []EnvVar{{Key: "HOME", Value: "/tmp/box"}, {Key: "LANG", Value: "C"}}
	if !reflect.DeepEqual(cfg.Env, wantEnv) {
		t.Errorf("env = %v, want %v", cfg.Env, wantEnv)
	}
}

func TestLoadProfileErrors(t *testing.T) {
	if _, err := LoadProfile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadProfile(absent) = nil error")
	}
	if _, err := LoadProfile(writeProfile(t, "memory: [not a number")); err == nil {
		t.Error("LoadProfile(malformed) = nil error")
	}
}

func TestProfileSeccompDefaultCaseInsensitive(t *testing.T) {
	cfg := Profile{SeccompDefault: "KILL"}.Config()
	if cfg.Syscalls.DefaultAction != ActionKill {
		t.Fatalf("seccomp default = %q, want %q", cfg.Syscalls.DefaultAction, ActionKill)
	}
}

func TestProfileCommandLine(t *testing.T) {
	p := Profile{Command: `/usr/bin/env sh -c 'echo "hello world"'`}
	argv, err := p.CommandLine()
	if err != nil {
		t.Fatalf("CommandLine: %v", err)
	}
	want := []string{"/usr/bin/env", "sh", "-c", `echo "hello world"`}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("CommandLine = %v, want %v", argv, want)
	}

	if argv, err := (Profile{}).CommandLine(); err != nil || argv != nil {
		t.Fatalf("empty CommandLine = %v, %v", argv, err)
	}

	if _, err := (Profile{Command: `unterminated "quote`}).CommandLine(); err == nil {
		t.Error("CommandLine(unbalanced quote) = nil error")
	}
}
