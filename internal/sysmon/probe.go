// Package sysmon samples host resource usage for the system metrics widget.
package sysmon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// Usage is a used/total pair in bytes.
type Usage struct {
	Used    uint64  `json:"used"`
	Total   uint64  `json:"total"`
	Percent float64 `json:"percent"`
}

// NetCounters are cumulative byte counters across all interfaces.
type NetCounters struct {
	BytesRecv uint64
	BytesSent uint64
}

// Process is one row of the top-processes table.
type Process struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float64 `json:"mem_percent"`
}

// Probe reads raw counters from the host. Each method is independent so a
// failing probe degrades only its own field.
type Probe interface {
	CPUPercent(ctx context.Context, interval time.Duration) (float64, error)
	Memory(ctx context.Context) (Usage, error)
	Disk(ctx context.Context, path string) (Usage, error)
	Network(ctx context.Context) (NetCounters, error)
	Processes(ctx context.Context) ([]Process, error)
}

// HostProbe implements Probe with gopsutil. It keeps a handle per process
// between calls so process CPU usage covers the interval since the previous
// Processes call.
type HostProbe struct {
	mu    sync.Mutex
	procs map[int32]*process.Process
}

// NewHostProbe returns a Probe backed by the running host.
func NewHostProbe() *HostProbe {
	return &HostProbe{procs: make(map[int32]*process.Process)}
}

// CPUPercent measures total CPU utilisation over interval.
func (*HostProbe) CPUPercent(ctx context.Context, interval time.Duration) (float64, error) {
	values, err := cpu.PercentWithContext(ctx, interval, false)
	if err != nil {
		return 0, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("cpu usage returned no values")
	}
	return values[0], nil
}

// Memory reads virtual memory usage.
func (*HostProbe) Memory(ctx context.Context) (Usage, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Usage{}, fmt.Errorf("failed to read memory usage: %w", err)
	}
	return Usage{Used: vm.Used, Total: vm.Total, Percent: vm.UsedPercent}, nil
}

// Disk reads usage of the filesystem mounted at path.
func (*HostProbe) Disk(ctx context.Context, path string) (Usage, error) {
	du, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return Usage{}, fmt.Errorf("failed to read disk usage of %s: %w", path, err)
	}
	return Usage{Used: du.Used, Total: du.Total, Percent: du.UsedPercent}, nil
}

// Network reads the summed interface counters.
func (*HostProbe) Network(ctx context.Context) (NetCounters, error) {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return NetCounters{}, fmt.Errorf("failed to read network counters: %w", err)
	}
	if len(counters) == 0 {
		return NetCounters{}, fmt.Errorf("network counters returned no values")
	}
	return NetCounters{BytesRecv: counters[0].BytesRecv, BytesSent: counters[0].BytesSent}, nil
}

// Processes lists every process that could be inspected. CPU usage is
// measured since the previous call and reads zero for a process seen for the
// first time. Processes that exit or deny access while being read are
// skipped.
func (h *HostProbe) Processes(ctx context.Context) ([]Process, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[int32]*process.Process, len(pids))
	out := make([]Process, 0, len(pids))
	for _, pid := range pids {
		p, ok := h.procs[pid]
		if !ok {
			if p, err = process.NewProcessWithContext(ctx, pid); err != nil {
				continue
			}
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		cpuPct, err := p.PercentWithContext(ctx, 0)
		if err != nil {
			continue
		}
		seen[pid] = p

		memPct, err := p.MemoryPercentWithContext(ctx)
		if err != nil {
			memPct = 0
		}
		out = append(out, Process{PID: pid, Name: name, CPUPercent: cpuPct, MemPercent: float64(memPct)})
	}
	h.procs = seen
	return out, nil
}

var _ Probe = (*HostProbe)(nil)
