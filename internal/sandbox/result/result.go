// Package result defines the run outcome record and the timeout
// classification applied to it.
package result

import (
	"encoding/json"
	"os"

	"sandrun/pkg/errors"
)

// RunResult captures one supervised execution. It is created once,
// after the child has been reaped, and never mutated afterwards.
type RunResult struct {
	// ExitCode uses the kernel convention: a signal death is encoded
	// as 128 plus the signal number.
	ExitCode   int   `json:"exit_code"`
	MaxRSSKB   int64 `json:"max_rss"`
	CPUTimeMs  int64 `json:"cpu_time"`
	RealTimeMs int64 `json:"real_time"`
	TimedOut   bool  `json:"timeouted"`
}

// WriteFile serializes the stats record to path, creating or
// truncating it.
func (r RunResult) WriteFile(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrapf(err, errors.Internal, "open stats file %q", path)
	}
	defer file.Close()
	if err := json.NewEncoder(file).Encode(r); err != nil {
		return errors.Wrapf(err, errors.Internal, "write stats file %q", path)
	}
	return nil
}
