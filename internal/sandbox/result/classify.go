package result

// Time measurement carries scheduler jitter, so a child killed right at
// its budget can report a reading just under the limit. The tolerance
// re-check widens the measurement by 2%, with a 15ms floor, but only
// when the child died by SIGKILL and no direct check already decided.
const (
	toleranceFactor  = 1.02
	toleranceFloorMs = 15
)

// Observation is the measured outcome of one run, as read from the
// kernel's accounting.
type Observation struct {
	WallTimeMs int64
	CPUTimeMs  int64
	// KilledBySIGKILL is true when the child was terminated by the
	// kill signal, whether by the watchdog or by the kernel's own
	// CPU-limit enforcement.
	KilledBySIGKILL bool
}

// Classify decides whether the run counts as timed out. Pure function
// of its inputs: re-running it on the same observation and budgets
// always yields the same answer. Zero budgets mean no limit of that
// kind was configured.
func Classify(obs Observation, realTimeLimitMs, cpuTimeLimitMs int64) bool {
	switch {
	case realTimeLimitMs > 0 && obs.WallTimeMs >= realTimeLimitMs:
		return true
	case cpuTimeLimitMs > 0 && obs.CPUTimeMs >= cpuTimeLimitMs:
		return true
	case obs.KilledBySIGKILL:
		if realTimeLimitMs > 0 && adjusted(obs.WallTimeMs) >= realTimeLimitMs {
			return true
		}
		if cpuTimeLimitMs > 0 && adjusted(obs.CPUTimeMs) >= cpuTimeLimitMs {
			return true
		}
	}
	return false
}

func adjusted(measuredMs int64) int64 {
	scaled := int64(float64(measuredMs) * toleranceFactor)
	if floor := measuredMs + toleranceFloorMs; floor > scaled {
		return floor
	}
	return scaled
}
