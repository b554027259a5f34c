package logview

import (
	"context"
	"log/slog"
	"sync"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/classify"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/domain"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
)

// EventSink receives watcher events; the SSE broker implements it.
type EventSink interface {
	Publish(kind string, data any)
}

// Event kinds published by the watcher.
const (
	EventRowClassified = "row.classified"
	EventRowDecorated  = "row.decorated"
)

// Classified pairs a row with its current decision.
type Classified struct {
	Row      Row               `json:"row"`
	Decision classify.Decision `json:"decision"`
}

// Watcher re-runs classification over all present rows whenever the
// container reports appended rows or a Reclassify kick arrives (filter
// toggle, ledger change). It is idempotent per row: action controls are
// injected once, tracked by a marker set, while visibility decisions are
// refreshed every pass.
//
// One watcher instance exists per page load; Run rejects stacking.
type Watcher struct {
	container Container
	st        *state.State
	sink      EventSink
	logger    *slog.Logger

	kick chan struct{}

	mu        sync.Mutex
	running   bool
	decisions map[string]classify.Decision
	decorated map[string]struct{}
}

// NewWatcher creates a watcher over the given container.
func NewWatcher(c Container, st *state.State, sink EventSink, logger *slog.Logger) *Watcher {
	return &Watcher{
		container: c,
		st:        st,
		sink:      sink,
		logger:    logger,
		kick:      make(chan struct{}, 1),
		decisions: make(map[string]classify.Decision),
		decorated: make(map[string]struct{}),
	}
}

// Run processes change events until ctx is cancelled. A second concurrent
// Run call returns immediately: watchers are never stacked.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		w.logger.Warn("watcher: already running, refusing to stack")
		return nil
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	w.logger.Info("watcher: started")
	w.reclassifyAll()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil
		case <-w.container.Changes():
			w.reclassifyAll()
		case <-w.kick:
			w.reclassifyAll()
		}
	}
}

// Reclassify schedules a full classification pass, coalescing with any
// pending one. Called after filter toggles and ledger mutations.
func (w *Watcher) Reclassify() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Decision returns the last decision computed for a row id.
func (w *Watcher) Decision(id string) (classify.Decision, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	d, ok := w.decisions[id]
	return d, ok
}

// Snapshot returns every tracked row with its current decision, in
// append order.
func (w *Watcher) Snapshot() []Classified {
	rows := w.container.Rows()
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Classified, 0, len(rows))
	for _, r := range rows {
		out = append(out, Classified{Row: r, Decision: w.decisions[r.ID]})
	}
	return out
}

// reclassifyAll evaluates every present row. A failure on one row must
// never abort processing of the remaining rows.
func (w *Watcher) reclassifyAll() {
	filters := w.st.Filters()
	rows := w.container.Rows()

	for _, row := range rows {
		w.classifyRow(row, filters)
	}
}

func (w *Watcher) classifyRow(row Row, filters state.Filters) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("watcher: row classification panicked",
				slog.String("row", row.ID), slog.Any("panic", r))
		}
	}()

	dec := classify.Evaluate(row.Signals, domain.Root(row.Signals.Domain), filters, w.st, w.st)

	w.mu.Lock()
	prev, seen := w.decisions[row.ID]
	w.decisions[row.ID] = dec
	_, injected := w.decorated[row.ID]
	if !injected {
		w.decorated[row.ID] = struct{}{}
	}
	w.mu.Unlock()

	if !injected && w.sink != nil {
		// Controls are injected exactly once per row.
		w.sink.Publish(EventRowDecorated, Classified{Row: row, Decision: dec})
	}
	if (!seen || !prev.Equal(dec)) && w.sink != nil {
		w.sink.Publish(EventRowClassified, Classified{Row: row, Decision: dec})
	}
}
