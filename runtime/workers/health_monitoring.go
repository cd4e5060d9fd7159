package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"linguachat/observability"
)

// HealthMonitoringWorker samples the relay process itself (CPU, RSS, OS
// status) on a fixed interval and merges the result into the stats manager.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	stats          *observability.RelayStats
	metricInterval time.Duration
}

func NewHealthMonitoringWorker(log *slog.Logger, stats *observability.RelayStats,
	metricInterval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{log: log, stats: stats, metricInterval: metricInterval}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			rss, cpu, status, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.stats.UpdateProcess(cpu, rss, status)
			w.log.Debug("Self stats collected",
				"cpu_percent", cpu,
				"rss_bytes", rss,
				"status", status)
		}
	}
}

// getSelfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func getSelfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
