// Package observability tracks hub throughput and process health and
// reports both periodically through the structured logger.
package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Stats is a point-in-time snapshot of the hub counters.
type Stats struct {
	ActiveConnections  int64  `json:"active_connections"`
	MessagesBroadcast  uint64 `json:"messages_broadcast"`
	TypingPings        uint64 `json:"typing_pings"`
	DroppedEvents      uint64 `json:"dropped_events"`
	Registrations      uint64 `json:"registrations"`
	FailedRegistration uint64 `json:"failed_registrations"`
}

// Monitor aggregates atomic counters fed by the hub and the transport.
// All increment methods are safe for concurrent use.
type Monitor struct {
	log      *slog.Logger
	interval time.Duration

	activeConnections   atomic.Int64
	messagesBroadcast   atomic.Uint64
	typingPings         atomic.Uint64
	droppedEvents       atomic.Uint64
	registrations       atomic.Uint64
	failedRegistrations atomic.Uint64
}

func NewMonitor(log *slog.Logger, interval time.Duration) *Monitor {
	return &Monitor{log: log, interval: interval}
}

func (m *Monitor) ConnectionOpened() { m.activeConnections.Add(1) }

func (m *Monitor) ConnectionClosed() { m.activeConnections.Add(-1) }

func (m *Monitor) IncrMessagesBroadcast() { m.messagesBroadcast.Add(1) }

func (m *Monitor) IncrTypingPings() { m.typingPings.Add(1) }

// IncrDroppedEvents counts events discarded because a recipient's outbound
// buffer was full. A slow recipient must never block the sender.
func (m *Monitor) IncrDroppedEvents() { m.droppedEvents.Add(1) }

func (m *Monitor) IncrRegistrations() { m.registrations.Add(1) }

func (m *Monitor) IncrFailedRegistrations() { m.failedRegistrations.Add(1) }

func (m *Monitor) Snapshot() Stats {
	return Stats{
		ActiveConnections:  m.activeConnections.Load(),
		MessagesBroadcast:  m.messagesBroadcast.Load(),
		TypingPings:        m.typingPings.Load(),
		DroppedEvents:      m.droppedEvents.Load(),
		Registrations:      m.registrations.Load(),
		FailedRegistration: m.failedRegistrations.Load(),
	}
}

// Run reports counters and self-process health every interval until the
// context is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Context done, stopping monitor")
			return nil
		case <-ticker.C:
			m.report(self)
		}
	}
}

func (m *Monitor) report(self *process.Process) {
	stats := m.Snapshot()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	attrs := []any{
		"active_connections", stats.ActiveConnections,
		"messages_broadcast", stats.MessagesBroadcast,
		"typing_pings", stats.TypingPings,
		"dropped_events", stats.DroppedEvents,
		"registrations", stats.Registrations,
		"failed_registrations", stats.FailedRegistration,
		"alloc_mem_mb", mem.Alloc / 1024 / 1024,
		"num_gc", mem.NumGC,
	}

	cpu, err := self.CPUPercent()
	if err == nil {
		attrs = append(attrs, "cpu_percent", cpu)
	}
	ram, err := self.MemoryPercent()
	if err == nil {
		attrs = append(attrs, "ram_percent", ram)
	}

	m.log.Info("telemetry: hub stats", attrs...)

	if stats.DroppedEvents > 0 {
		m.log.Warn("slow recipients detected", "dropped_events", stats.DroppedEvents)
	}
}
