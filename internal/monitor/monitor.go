// Package monitor samples disk and process statistics for health payloads.
package monitor

import (
	"context"
	"log"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/process"
)

const cacheTTL = 2 * time.Second

// Snapshot is one sampling of host and process state.
type Snapshot struct {
	Platform        string    `json:"platform"`
	DataDir         string    `json:"dataDir"`
	DiskTotalBytes  uint64    `json:"diskTotalBytes"`
	DiskFreeBytes   uint64    `json:"diskFreeBytes"`
	DiskUsedPercent float64   `json:"diskUsedPercent"`
	ProcessRSSBytes uint64    `json:"processRssBytes"`
	Goroutines      int       `json:"goroutines"`
	CollectedAt     time.Time `json:"collectedAt"`
}

// Service caches samplings briefly so health checks stay cheap.
type Service struct {
	dataDir string

	mu      sync.Mutex
	hasSnap bool
	snap    Snapshot
}

func NewService(dataDir string) *Service {
	return &Service{dataDir: dataDir}
}

// Snapshot returns a recent sampling, collecting a fresh one when the cached
// copy is older than the TTL.
func (s *Service) Snapshot(ctx context.Context) Snapshot {
	now := time.Now()

	s.mu.Lock()
	if s.hasSnap && now.Sub(s.snap.CollectedAt) < cacheTTL {
		out := s.snap
		s.mu.Unlock()
		return out
	}
	s.mu.Unlock()

	snap := s.collect(ctx)

	s.mu.Lock()
	s.snap = snap
	s.hasSnap = true
	s.mu.Unlock()

	return snap
}

func (s *Service) collect(ctx context.Context) Snapshot {
	snap := Snapshot{
		Platform:    runtime.GOOS,
		DataDir:     s.dataDir,
		Goroutines:  runtime.NumGoroutine(),
		CollectedAt: time.Now().UTC(),
	}

	if usage, err := disk.UsageWithContext(ctx, s.dataDir); err == nil && usage != nil {
		snap.DiskTotalBytes = usage.Total
		snap.DiskFreeBytes = usage.Free
		snap.DiskUsedPercent = usage.UsedPercent
	} else if err != nil {
		log.Printf("monitor: disk usage for %s: %v", s.dataDir, err)
	}

	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if memInfo, err := proc.MemoryInfoWithContext(ctx); err == nil && memInfo != nil {
			snap.ProcessRSSBytes = memInfo.RSS
		}
	}

	return snap
}
