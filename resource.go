package lua

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/process"
)

// MemoryLimiter reports the embedding process's current resident set
// size and compares it against a configured ceiling. It backs the
// best-effort memory check available at Restricted trust and below
// (§4.6): a script cannot be metered precisely without a
// register-level allocation budget, but the host process's own RSS is
// cheap to sample and catches a runaway table-growth loop before the
// OS does.
type MemoryLimiter struct {
	proc  *process.Process
	limit uint64 // bytes; zero means unlimited
}

// NewMemoryLimiter opens a handle on the current process. limitBytes
// of zero disables the check (Exceeded always reports false).
func NewMemoryLimiter(limitBytes uint64) (*MemoryLimiter, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("resource: opening process handle: %w", err)
	}
	return &MemoryLimiter{proc: p, limit: limitBytes}, nil
}

// Exceeded samples current RSS and reports whether it is at or above
// the configured limit. A sampling failure is treated as "not
// exceeded" — a host that cannot read its own process stats should
// fail open on this best-effort check rather than abort every script.
func (m *MemoryLimiter) Exceeded() bool {
	if m == nil || m.limit == 0 {
		return false
	}
	mi, err := m.proc.MemoryInfo()
	if err != nil || mi == nil {
		return false
	}
	return mi.RSS >= m.limit
}

// RSS samples and returns the current resident set size in bytes, or 0 if it
// could not be read.
func (m *MemoryLimiter) RSS() uint64 {
	if m == nil {
		return 0
	}
	mi, err := m.proc.MemoryInfo()
	if err != nil || mi == nil {
		return 0
	}
	return mi.RSS
}
