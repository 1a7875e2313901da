//go:build linux

package supervisor

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Watchdog is a one-shot real-time timer owning the child's process
// id. On expiry it SIGKILLs the child's process group. The signal is
// the same one the kernel uses for CPU-limit enforcement; telling the
// two apart is the classifier's job, not the watchdog's.
type Watchdog struct {
	pid   int
	timer *time.Timer
	fired atomic.Bool
	log   *zap.Logger
}

// Watch arms a watchdog for the process group led by pid.
func Watch(pid int, limit time.Duration, log *zap.Logger) *Watchdog {
	w := &Watchdog{pid: pid, log: log}
	w.timer = time.AfterFunc(limit, w.fire)
	return w
}

func (w *Watchdog) fire() {
	w.fired.Store(true)
	w.log.Info("watchdog expired, killing process group", zap.Int("pid", w.pid))
	_ = unix.Kill(-w.pid, unix.SIGKILL)
}

// Stop cancels the timer. Safe to call after expiry.
func (w *Watchdog) Stop() {
	w.timer.Stop()
}

// Fired reports whether the watchdog delivered its kill.
func (w *Watchdog) Fired() bool {
	return w.fired.Load()
}
