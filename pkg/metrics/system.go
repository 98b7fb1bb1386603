package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStats is a point-in-time host and runtime snapshot.
type SystemStats struct {
	Timestamp time.Time    `json:"timestamp"`
	CPU       CPUStats     `json:"cpu"`
	Memory    MemoryStats  `json:"memory"`
	Disk      DiskStats    `json:"disk"`
	Runtime   RuntimeStats `json:"runtime"`
	Host      HostStats    `json:"host"`
}

type CPUStats struct {
	UsagePercent float64 `json:"usage_percent"`
	CountLogical int     `json:"count_logical"`
}

type MemoryStats struct {
	Total        uint64  `json:"total"`
	Available    uint64  `json:"available"`
	Used         uint64  `json:"used"`
	UsagePercent float64 `json:"usage_percent"`
}

type DiskStats struct {
	Path         string  `json:"path"`
	Total        uint64  `json:"total"`
	Used         uint64  `json:"used"`
	Free         uint64  `json:"free"`
	UsagePercent float64 `json:"usage_percent"`
}

type RuntimeStats struct {
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	NumGC      uint32 `json:"num_gc"`
}

type HostStats struct {
	Hostname string `json:"hostname"`
	Uptime   uint64 `json:"uptime"`
	Platform string `json:"platform"`
}

// CollectSystemStats gathers what the host exposes. Probes that fail on the
// current platform leave their section zeroed.
func CollectSystemStats(ctx context.Context, diskPath string) *SystemStats {
	stats := &SystemStats{Timestamp: time.Now()}

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		stats.CPU.UsagePercent = pct[0]
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		stats.CPU.CountLogical = n
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.Memory = MemoryStats{
			Total:        vm.Total,
			Available:    vm.Available,
			Used:         vm.Used,
			UsagePercent: vm.UsedPercent,
		}
	}

	if diskPath == "" {
		diskPath = "/"
	}
	if du, err := disk.UsageWithContext(ctx, diskPath); err == nil {
		stats.Disk = DiskStats{
			Path:         diskPath,
			Total:        du.Total,
			Used:         du.Used,
			Free:         du.Free,
			UsagePercent: du.UsedPercent,
		}
	}

	if hi, err := host.InfoWithContext(ctx); err == nil {
		stats.Host = HostStats{
			Hostname: hi.Hostname,
			Uptime:   hi.Uptime,
			Platform: hi.Platform,
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.Runtime = RuntimeStats{
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  m.HeapAlloc,
		HeapSys:    m.HeapSys,
		NumGC:      m.NumGC,
	}
	return stats
}
