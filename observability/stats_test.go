package observability

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRelayStats_CountersAreConcurrencySafe(t *testing.T) {
	req := require.New(t)
	stats := NewRelayStats(slog.Default())

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats.IncrMessagesRelayed()
			stats.IncrTranslationFallbacks()
			stats.IncrRoutingMisses()
		}()
	}
	wg.Wait()

	counters := stats.GetLatest()
	req.Equal(uint64(100), counters.MessagesRelayed)
	req.Equal(uint64(100), counters.TranslationFallbacks)
	req.Equal(uint64(100), counters.RoutingMisses)
}

func TestRelayStats_ProcessGauges(t *testing.T) {
	req := require.New(t)
	stats := NewRelayStats(slog.Default())

	stats.SetOnlineUsers(3)
	stats.UpdateProcess(12.5, 64*1024*1024, "running")

	counters := stats.GetLatest()
	req.Equal(3, counters.OnlineUsers)
	req.Equal(12.5, counters.ProcessCPUPercent)
	req.Equal(uint64(64), counters.ProcessRSSMb)
	req.Equal("running", counters.ProcessStatus)
}

func TestRelayStats_ProviderExposesSnapshot(t *testing.T) {
	req := require.New(t)
	stats := NewRelayStats(slog.Default())

	stats.IncrMessagesRelayed()
	stats.SetOnlineUsers(2)

	snapshot := stats.Provider()()
	req.Equal(uint64(1), snapshot["Relayed"])
	req.Equal(2, snapshot["OnlineUsers"])
	req.Contains(snapshot, "Time")
}
