//go:build linux

// Package supervisor forks the confined child, arms the optional
// real-time watchdog, reaps the child and classifies the outcome.
package supervisor

import (
	"encoding/json"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"sandrun/internal/sandbox/result"
	"sandrun/internal/sandbox/spec"
	"sandrun/pkg/errors"
)

// ChildInitArg is the hidden argv[1] that switches the re-executed
// binary into child-setup mode.
const ChildInitArg = "child-init"

// ConfigFD is the descriptor the child reads its configuration from;
// stdin stays free so the target inherits the launcher's streams
// unless redirected.
const ConfigFD = 3

// Supervisor launches and supervises one confined child per Run call.
type Supervisor struct {
	childPath string
	log       *zap.Logger
}

// New creates a supervisor. childPath is the binary re-executed for
// the child side; empty means the running executable.
func New(childPath string, log *zap.Logger) *Supervisor {
	if childPath == "" {
		childPath = "/proc/self/exe"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{childPath: childPath, log: log}
}

// Run executes the configured target under confinement and returns the
// classified outcome. Exactly one RunResult is produced per call.
func (s *Supervisor) Run(cfg spec.Config) (result.RunResult, error) {
	log := s.log.With(zap.String("run_id", uuid.NewString()))

	payload, err := json.Marshal(cfg)
	if err != nil {
		return result.RunResult{}, errors.Wrap(err, errors.Internal, "encode child config")
	}
	reader, writer, err := os.Pipe()
	if err != nil {
		return result.RunResult{}, errors.Wrap(err, errors.Internal, "create config pipe")
	}
	defer reader.Close()

	cmd := exec.Command(s.childPath, ChildInitArg)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{reader}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		writer.Close()
		return result.RunResult{}, errors.Wrap(err, errors.Internal, "start child")
	}
	log.Info("child started",
		zap.Int("pid", cmd.Process.Pid),
		zap.String("program", cfg.Program))

	// The config comfortably fits the pipe buffer, so the write cannot
	// block against a child that never reads.
	if _, err := writer.Write(payload); err != nil {
		log.Warn("write child config", zap.Error(err))
	}
	writer.Close()

	var watchdog *Watchdog
	if cfg.Limits.RealTimeMs > 0 {
		watchdog = Watch(cmd.Process.Pid,
			time.Duration(cfg.Limits.RealTimeMs)*time.Millisecond, log)
		defer watchdog.Stop()
	}

	waitErr := cmd.Wait()
	wallTimeMs := time.Since(start).Milliseconds()

	state := cmd.ProcessState
	if state == nil {
		return result.RunResult{}, errors.Wrap(waitErr, errors.Internal, "wait for child")
	}

	status, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		return result.RunResult{}, errors.New(errors.Internal, "unexpected wait status type")
	}

	res := result.RunResult{
		ExitCode:   exitCode(status),
		RealTimeMs: wallTimeMs,
	}
	if usage, ok := state.SysUsage().(*syscall.Rusage); ok {
		res.CPUTimeMs = userTimeMs(usage)
		// rusage reports KiB; the stats record uses kB.
		res.MaxRSSKB = int64(float64(usage.Maxrss) * 1.024)
	}

	obs := result.Observation{
		WallTimeMs:      wallTimeMs,
		CPUTimeMs:       res.CPUTimeMs,
		KilledBySIGKILL: status.Signaled() && status.Signal() == unix.SIGKILL,
	}
	res.TimedOut = result.Classify(obs, cfg.Limits.RealTimeMs, cfg.Limits.CPUTimeMs)

	log.Info("child reaped",
		zap.Int("exit_code", res.ExitCode),
		zap.Int64("real_time_ms", res.RealTimeMs),
		zap.Int64("cpu_time_ms", res.CPUTimeMs),
		zap.Int64("max_rss_kb", res.MaxRSSKB),
		zap.Bool("timed_out", res.TimedOut))
	return res, nil
}

// exitCode encodes a signal death as 128 plus the signal number.
func exitCode(status syscall.WaitStatus) int {
	if status.Signaled() {
		return 128 + int(status.Signal())
	}
	return status.ExitStatus()
}

func userTimeMs(usage *syscall.Rusage) int64 {
	utime := time.Duration(usage.Utime.Sec)*time.Second +
		time.Duration(usage.Utime.Usec)*time.Microsecond
	return utime.Milliseconds()
}
