package platform

import (
	"context"
	"time"

	"github.com/inorbit-ai/flowcore-connector/pkg/connector/core"
	"github.com/inorbit-ai/flowcore-connector/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStatsCollector samples CPU, memory and disk usage of the host the
// connector runs on.
type SystemStatsCollector struct {
	diskPath string
	now      func() time.Time
}

// NewSystemStatsCollector creates a collector reporting disk usage for the
// filesystem that holds diskPath ("/" when empty).
func NewSystemStatsCollector(diskPath string) *SystemStatsCollector {
	if diskPath == "" {
		diskPath = "/"
	}
	return &SystemStatsCollector{diskPath: diskPath, now: time.Now}
}

// Collect samples the host. CPU load is measured since the previous call,
// so the first sample after startup may read zero.
func (c *SystemStatsCollector) Collect(ctx context.Context) (core.SystemStats, error) {
	cpuPercent, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return core.SystemStats{}, errors.Wrap(err, errors.ErrorTypeInternal, "failed to read CPU usage")
	}

	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return core.SystemStats{}, errors.Wrap(err, errors.ErrorTypeInternal, "failed to read memory usage")
	}

	usage, err := disk.UsageWithContext(ctx, c.diskPath)
	if err != nil {
		return core.SystemStats{}, errors.Wrap(err, errors.ErrorTypeInternal, "failed to read disk usage").
			WithDetail("path", c.diskPath)
	}

	stats := core.SystemStats{
		RAMUsagePercentage: vmStat.UsedPercent,
		HDDUsagePercentage: usage.UsedPercent,
		CollectedAt:        c.now(),
	}
	if len(cpuPercent) > 0 {
		stats.CPULoadPercentage = cpuPercent[0]
	}
	return stats, nil
}
