package sysmon

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/dyluth/vigil/internal/ttlcache"
	"github.com/jonboulle/clockwork"
)

const (
	// SourceName identifies system metrics on the apply channel.
	SourceName = "sysmon"

	// TopN is the number of processes shown.
	TopN = 3

	cpuWindow = 250 * time.Millisecond
	netWindow = 500 * time.Millisecond
)

// ErrNoSample is returned until the first sample succeeds.
var ErrNoSample = errors.New("no system sample available")

// Snapshot is one system metrics sample.
type Snapshot struct {
	CPUPercent float64 `json:"cpu_percent"`

	Memory Usage `json:"memory"`

	Disk    Usage `json:"disk"`
	HasDisk bool  `json:"has_disk"`

	NetRx  float64 `json:"net_rx"` // bytes per second
	NetTx  float64 `json:"net_tx"`
	HasNet bool    `json:"has_net"`

	TopProcesses []Process `json:"top_processes"`
}

// Source samples the host every poll and serves the last good sample when a
// sample fails.
type Source struct {
	probe     Probe
	clock     clockwork.Clock
	diskPath  string
	netWindow time.Duration
	cache     *ttlcache.Cache[*Snapshot]
}

// NewSource creates the system metrics source.
func NewSource(probe Probe, clock clockwork.Clock, opts ...ttlcache.Option) *Source {
	opts = append([]ttlcache.Option{ttlcache.WithClock(clock)}, opts...)
	return &Source{
		probe:     probe,
		clock:     clock,
		diskPath:  "/",
		netWindow: netWindow,
		// TTL 0: every poll samples, failures fall back to the last sample
		cache: ttlcache.New[*Snapshot]("sysmon", 0, opts...),
	}
}

func (s *Source) Name() string            { return SourceName }
func (s *Source) Interval() time.Duration { return 3 * time.Second }
func (s *Source) Timeout() time.Duration  { return 2500 * time.Millisecond }

// Fetch returns the latest *Snapshot.
func (s *Source) Fetch(ctx context.Context) (any, error) {
	snap, ok := s.cache.GetOrRefresh(ctx, s.Sample)
	if !ok {
		return nil, ErrNoSample
	}
	return snap, nil
}

// Sample takes one reading. A CPU failure fails the whole sample; other
// probes degrade to their zero value.
func (s *Source) Sample(ctx context.Context) (*Snapshot, error) {
	cpuPct, err := s.probe.CPUPercent(ctx, cpuWindow)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{CPUPercent: cpuPct}

	if m, err := s.probe.Memory(ctx); err == nil {
		snap.Memory = m
	} else {
		log.Printf("[DEBUG] sysmon: %v", err)
	}

	if d, err := s.probe.Disk(ctx, s.diskPath); err == nil {
		snap.Disk = d
		snap.HasDisk = true
	} else {
		log.Printf("[DEBUG] sysmon: %v", err)
	}

	if rx, tx, err := s.netRates(ctx); err == nil {
		snap.NetRx, snap.NetTx = rx, tx
		snap.HasNet = true
	} else {
		log.Printf("[DEBUG] sysmon: %v", err)
	}

	if procs, err := s.probe.Processes(ctx); err == nil {
		snap.TopProcesses = topByCPU(procs, TopN)
	} else {
		log.Printf("[DEBUG] sysmon: %v", err)
	}

	return snap, nil
}

// netRates measures rx/tx bytes per second across the network window.
func (s *Source) netRates(ctx context.Context) (float64, float64, error) {
	before, err := s.probe.Network(ctx)
	if err != nil {
		return 0, 0, err
	}

	select {
	case <-s.clock.After(s.netWindow):
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	}

	after, err := s.probe.Network(ctx)
	if err != nil {
		return 0, 0, err
	}

	secs := s.netWindow.Seconds()
	return delta(before.BytesRecv, after.BytesRecv) / secs, delta(before.BytesSent, after.BytesSent) / secs, nil
}

// delta tolerates counter resets.
func delta(before, after uint64) float64 {
	if after < before {
		return 0
	}
	return float64(after - before)
}

// topByCPU returns the n busiest processes, ties kept in input order.
func topByCPU(procs []Process, n int) []Process {
	sorted := make([]Process, len(procs))
	copy(sorted, procs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CPUPercent > sorted[j].CPUPercent
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
