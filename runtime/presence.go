package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"linguachat/contract"
	"linguachat/domain/event"
	"linguachat/observability"
)

// Broadcaster pushes the full online set to every live connection after a
// registry change.
//
// Broadcasts are best-effort with no guarantees regarding delivery or
// ordering relative to concurrent message relays; a client may transiently
// see presence lag behind delivered messages.
//
// Broadcaster is safe for concurrent use by multiple goroutines.
type Broadcaster struct {
	log         *slog.Logger
	registry    contract.IRegistry
	stats       *observability.RelayStats
	sinkTimeout time.Duration
}

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry,
	stats *observability.RelayStats, sinkTimeout time.Duration) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, stats: stats, sinkTimeout: sinkTimeout}
}

// Broadcast recomputes the registry key set and fans it out to every live
// sink, including the connection that changed. No diffing, no filtering.
// A slow or dead sink only loses its own copy of the event.
func (b *Broadcaster) Broadcast(ctx context.Context) {
	online := b.registry.OnlineUsers()
	sinks := b.registry.Sinks()
	if b.stats != nil {
		b.stats.SetOnlineUsers(len(online))
	}

	evt := event.PresenceChanged{Online: online, At: time.Now().UTC()}

	var wg sync.WaitGroup
	for _, s := range sinks {
		wg.Add(1)
		go func(s contract.EventSink) {
			defer wg.Done()
			sinkCtx, cancel := context.WithTimeout(ctx, b.sinkTimeout)
			defer cancel()
			if err := s.Consume(sinkCtx, evt); err != nil {
				b.log.Debug("Presence event lost", "error", err)
			}
		}(s)
	}
	wg.Wait()
}
