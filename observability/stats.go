// Package observability aggregates relay counters for the debug surface.
// It never participates in relay decisions.
package observability

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// RelayCounters is the snapshot exposed to the inspect dashboard.
type RelayCounters struct {
	MessagesRelayed      uint64  `json:"messages_relayed"`
	TranslationFallbacks uint64  `json:"translation_fallbacks"`
	RoutingMisses        uint64  `json:"routing_misses"`
	PersistenceFailures  uint64  `json:"persistence_failures"`
	DeliveryFailures     uint64  `json:"delivery_failures"`
	OnlineUsers          int     `json:"online_users"`
	ProcessCPUPercent    float64 `json:"process_cpu_percent"`
	ProcessRSSMb         uint64  `json:"process_rss_mb"`
	ProcessStatus        string  `json:"process_status"`
	AllocMemMb           uint64  `json:"alloc_mem_mb"`
	NumGC                uint32  `json:"num_gc"`
}

// RelayStats collects counters from the relay and the health worker.
// Counters are atomic; the process gauge fields are guarded by the mutex.
type RelayStats struct {
	log *slog.Logger
	mu  sync.RWMutex

	messagesRelayed      uint64
	translationFallbacks uint64
	routingMisses        uint64
	persistenceFailures  uint64
	deliveryFailures     uint64

	onlineUsers   int
	processCPU    float64
	processRSSMb  uint64
	processStatus string
}

func NewRelayStats(log *slog.Logger) *RelayStats {
	return &RelayStats{log: log}
}

func (s *RelayStats) IncrMessagesRelayed()      { atomic.AddUint64(&s.messagesRelayed, 1) }
func (s *RelayStats) IncrTranslationFallbacks() { atomic.AddUint64(&s.translationFallbacks, 1) }
func (s *RelayStats) IncrRoutingMisses()        { atomic.AddUint64(&s.routingMisses, 1) }
func (s *RelayStats) IncrPersistenceFailures()  { atomic.AddUint64(&s.persistenceFailures, 1) }
func (s *RelayStats) IncrDeliveryFailures()     { atomic.AddUint64(&s.deliveryFailures, 1) }

func (s *RelayStats) SetOnlineUsers(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onlineUsers = n
}

// UpdateProcess merges the self stats collected by the health worker.
func (s *RelayStats) UpdateProcess(cpuPercent float64, rssBytes uint64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processCPU = cpuPercent
	s.processRSSMb = rssBytes / 1024 / 1024
	s.processStatus = status
}

func (s *RelayStats) GetLatest() RelayCounters {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return RelayCounters{
		MessagesRelayed:      atomic.LoadUint64(&s.messagesRelayed),
		TranslationFallbacks: atomic.LoadUint64(&s.translationFallbacks),
		RoutingMisses:        atomic.LoadUint64(&s.routingMisses),
		PersistenceFailures:  atomic.LoadUint64(&s.persistenceFailures),
		DeliveryFailures:     atomic.LoadUint64(&s.deliveryFailures),
		OnlineUsers:          s.onlineUsers,
		ProcessCPUPercent:    s.processCPU,
		ProcessRSSMb:         s.processRSSMb,
		ProcessStatus:        s.processStatus,
		AllocMemMb:           m.Alloc / 1024 / 1024,
		NumGC:                m.NumGC,
	}
}

// Provider adapts the stats to the debug server's StatsProvider shape.
func (s *RelayStats) Provider() func() map[string]any {
	return func() map[string]any {
		c := s.GetLatest()
		return map[string]any{
			"Relayed":              c.MessagesRelayed,
			"TranslationFallbacks": c.TranslationFallbacks,
			"RoutingMisses":        c.RoutingMisses,
			"PersistenceFailures":  c.PersistenceFailures,
			"DeliveryFailures":     c.DeliveryFailures,
			"OnlineUsers":          c.OnlineUsers,
			"CPU":                  c.ProcessCPUPercent,
			"RSSMb":                c.ProcessRSSMb,
			"AllocMb":              c.AllocMemMb,
			"Time":                 time.Now().Format(time.RFC822),
		}
	}
}
