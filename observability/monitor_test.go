package observability

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Snapshot_Reflects_Counters(t *testing.T) {
	req := require.New(t)
	monitor := NewMonitor(slog.Default(), time.Minute)

	monitor.ConnectionOpened()
	monitor.ConnectionOpened()
	monitor.ConnectionClosed()
	monitor.IncrMessagesBroadcast()
	monitor.IncrTypingPings()
	monitor.IncrDroppedEvents()
	monitor.IncrRegistrations()
	monitor.IncrFailedRegistrations()

	stats := monitor.Snapshot()
	req.Equal(int64(1), stats.ActiveConnections)
	req.Equal(uint64(1), stats.MessagesBroadcast)
	req.Equal(uint64(1), stats.TypingPings)
	req.Equal(uint64(1), stats.DroppedEvents)
	req.Equal(uint64(1), stats.Registrations)
	req.Equal(uint64(1), stats.FailedRegistration)
}

func Test_Counters_Are_Safe_For_Concurrent_Use(t *testing.T) {
	req := require.New(t)
	monitor := NewMonitor(slog.Default(), time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				monitor.IncrMessagesBroadcast()
			}
		}()
	}
	wg.Wait()

	req.Equal(uint64(8000), monitor.Snapshot().MessagesBroadcast)
}

func Test_Run_Stops_On_Context_Cancel(t *testing.T) {
	req := require.New(t)
	monitor := NewMonitor(slog.Default(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan error, 1)
	go func() { finished <- monitor.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-finished:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("Run must return once the context is canceled")
	}
}
