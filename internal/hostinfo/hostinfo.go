// Package hostinfo logs a one-line snapshot of the host a run executed on,
// so timing comparisons across machines have that context available without
// needing to ask whoever ran them.
package hostinfo

import (
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"go.uber.org/zap"
)

// Snapshot is the subset of host state worth recording alongside a run.
type Snapshot struct {
	LogicalCPUs int
	ModelName   string
	TotalMemMB  uint64
	AvailMemMB  uint64
}

// Collect reads CPU and memory info via gopsutil. It never fails the caller:
// on any collection error the corresponding fields are left zero and the
// error is logged, since host diagnostics are context, not a precondition.
func Collect(log *zap.SugaredLogger) Snapshot {
	var snap Snapshot

	if counts, err := cpu.Counts(true); err != nil {
		log.Warnw("hostinfo: cpu count unavailable", "error", err)
	} else {
		snap.LogicalCPUs = counts
	}

	if infos, err := cpu.Info(); err != nil {
		log.Warnw("hostinfo: cpu info unavailable", "error", err)
	} else if len(infos) > 0 {
		snap.ModelName = infos[0].ModelName
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		log.Warnw("hostinfo: memory info unavailable", "error", err)
	} else {
		snap.TotalMemMB = vm.Total / (1 << 20)
		snap.AvailMemMB = vm.Available / (1 << 20)
	}

	return snap
}

// Log emits the snapshot as one structured log line.
func (s Snapshot) Log(log *zap.SugaredLogger) {
	log.Infow("host",
		"cpus", s.LogicalCPUs,
		"cpu_model", s.ModelName,
		"mem_total_mb", s.TotalMemMB,
		"mem_avail_mb", s.AvailMemMB,
	)
}
