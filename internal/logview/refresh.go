package logview

import (
	"context"
	"log/slog"
	"time"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
)

// EventRefresh asks the shim to trigger the host page's stream toggle,
// pulling in new log rows.
const EventRefresh = "command.refresh"

// RefreshTicker publishes a refresh command at a fixed interval while
// the autoRefresh flag is on. The flag is re-read every tick, so toggling
// takes effect without restarting the loop.
type RefreshTicker struct {
	st       *state.State
	sink     EventSink
	interval time.Duration
	logger   *slog.Logger
}

// NewRefreshTicker creates a ticker; interval <= 0 defaults to 5s.
func NewRefreshTicker(st *state.State, sink EventSink, interval time.Duration, logger *slog.Logger) *RefreshTicker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &RefreshTicker{st: st, sink: sink, interval: interval, logger: logger}
}

// Run ticks until ctx is cancelled.
func (t *RefreshTicker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("refresh: ticker started", slog.Duration("interval", t.interval))
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("refresh: ticker stopped")
			return nil
		case <-ticker.C:
			if t.st.Filters().AutoRefresh {
				t.sink.Publish(EventRefresh, nil)
			}
		}
	}
}
