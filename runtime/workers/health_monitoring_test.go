package workers

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/require"

	"linguachat/observability"
)

func TestGetSelfStats(t *testing.T) {
	req := require.New(t)

	p, err := process.NewProcess(int32(os.Getpid()))
	req.NoError(err)

	rss, cpu, status, err := getSelfStats(p)
	req.NoError(err)
	req.Greater(rss, uint64(0))
	req.GreaterOrEqual(cpu, 0.0)
	req.NotEmpty(status)
}

func TestHealthMonitoringWorker_UpdatesStats(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	stats := observability.NewRelayStats(log)

	worker := NewHealthMonitoringWorker(log, stats, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	req.NoError(worker.Run(ctx))

	counters := stats.GetLatest()
	req.Greater(counters.ProcessRSSMb, uint64(0))
	req.NotEmpty(counters.ProcessStatus)
}
