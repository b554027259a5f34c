// Package preload implements the forced-history preload session: N
// scroll-to-bottom cycles with a fixed delay between them, so the host
// page's lazy loader pulls in N pages of history while the watcher picks
// up the appended rows.
package preload

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/apperr"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
)

// Event kinds published by the controller.
const (
	EventStarted  = "preload.started"
	EventProgress = "preload.progress"
	EventFinished = "preload.finished"
)

// DefaultCounts is the fixed allowed set for Start.
var DefaultCounts = []int{5, 10, 15, 20, 30, 40, 50}

// settleDelay gives the page one render pass after filters are cleared
// before the first forced scroll.
const settleDelay = 500 * time.Millisecond

// Scroller executes scroll commands against the host page. The broker
// publishes them to the shim; tests use a fake.
type Scroller interface {
	// Offset reports the current scroll offset.
	Offset() int
	// ScrollToBottom scrolls to the document's current bottom.
	ScrollToBottom()
	// ScrollTo restores an absolute offset.
	ScrollTo(offset int)
}

// EventSink receives controller events.
type EventSink interface {
	Publish(kind string, data any)
}

// Progress is the payload of EventProgress.
type Progress struct {
	SessionID string `json:"sessionId"`
	Step      int    `json:"step"`
	Target    int    `json:"target"`
}

// Result is the payload of EventFinished.
type Result struct {
	SessionID string `json:"sessionId"`
	Cancelled bool   `json:"cancelled"`
}

// Session is one preload run. It is ephemeral: nothing about it is
// persisted.
type Session struct {
	ID     string
	Target int

	cancelled atomic.Bool
	done      chan struct{}
}

// Done is closed after the session's cleanup has run.
func (s *Session) Done() <-chan struct{} { return s.done }

// Cancelled reports whether cancellation was requested. Cancellation is
// cooperative: an in-flight delay completes before it takes effect.
func (s *Session) Cancelled() bool { return s.cancelled.Load() }

// Controller owns at most one active session at a time.
type Controller struct {
	st         *state.State
	scroller   Scroller
	sink       EventSink
	reclassify func()
	delay      time.Duration
	allowed    map[int]struct{}
	logger     *slog.Logger

	mu     sync.Mutex
	active *Session
}

// New creates a controller. delay <= 0 defaults to 3s; counts nil
// defaults to DefaultCounts.
func New(st *state.State, scroller Scroller, sink EventSink, reclassify func(), delay time.Duration, counts []int, logger *slog.Logger) *Controller {
	if delay <= 0 {
		delay = 3 * time.Second
	}
	if counts == nil {
		counts = DefaultCounts
	}
	allowed := make(map[int]struct{}, len(counts))
	for _, c := range counts {
		allowed[c] = struct{}{}
	}
	return &Controller{
		st:         st,
		scroller:   scroller,
		sink:       sink,
		reclassify: reclassify,
		delay:      delay,
		allowed:    allowed,
		logger:     logger,
	}
}

// Active returns the running session, nil when idle.
func (c *Controller) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Cancel requests cooperative cancellation of the active session.
// A no-op when idle.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.active.cancelled.Store(true)
	}
}

// Start begins a preload session of count cycles. A count outside the
// allowed set is a no-op returning a nil session. A second Start while a
// session is active is rejected with ErrPreloadActive rather than racing
// two loops against the same filter snapshot.
func (c *Controller) Start(ctx context.Context, count int) (*Session, error) {
	if _, ok := c.allowed[count]; !ok {
		return nil, nil
	}

	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		return nil, apperr.ErrPreloadActive
	}
	s := &Session{
		ID:     uuid.NewString(),
		Target: count,
		done:   make(chan struct{}),
	}
	c.active = s
	c.mu.Unlock()

	go c.run(ctx, s)
	return s, nil
}

func (c *Controller) run(ctx context.Context, s *Session) {
	snapshot := c.st.Filters()
	hadActive := snapshot.AnyActive()
	originalOffset := c.scroller.Offset()

	// Cleanup must run exactly once on every exit path: normal,
	// cancelled, or panicking.
	defer func() {
		if hadActive {
			if err := c.st.RestoreFilters(snapshot); err != nil {
				c.logger.Error("preload: restore filters", slog.String("error", err.Error()))
			}
			c.reclassify()
		}
		c.scroller.ScrollTo(originalOffset)
		c.sink.Publish(EventFinished, Result{SessionID: s.ID, Cancelled: s.Cancelled()})

		c.mu.Lock()
		c.active = nil
		c.mu.Unlock()
		close(s.done)
	}()

	if hadActive {
		// Neutralize without persisting so the stored snapshot cannot
		// be lost to a crash mid-session.
		c.st.SetFilters(state.Filters{})
		c.reclassify()
		sleep(ctx, settleDelay)
	}

	c.sink.Publish(EventStarted, Progress{SessionID: s.ID, Target: s.Target})
	c.logger.Info("preload: started", slog.String("session", s.ID), slog.Int("target", s.Target))

	for i := 0; i < s.Target; i++ {
		if s.Cancelled() {
			c.logger.Info("preload: cancelled", slog.String("session", s.ID), slog.Int("completed", i))
			return
		}
		c.sink.Publish(EventProgress, Progress{SessionID: s.ID, Step: i + 1, Target: s.Target})
		c.scroller.ScrollToBottom()
		if !sleep(ctx, c.delay) {
			return
		}
	}
	c.logger.Info("preload: complete", slog.String("session", s.ID))
}

// sleep waits for d or until ctx is cancelled; it reports whether the
// full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
