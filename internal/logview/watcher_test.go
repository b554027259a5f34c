package logview

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/classify"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/testutil"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// eventually polls cond until it returns true or the timeout elapses.
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) Publish(kind string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, kind)
}

func (s *recordingSink) count(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e == kind {
			n++
		}
	}
	return n
}

func TestFeedAppendAssignsIDs(t *testing.T) {
	f := NewFeed()
	f.Append(Row{Signals: classify.Signals{Domain: "a.com"}})
	f.Append(Row{ID: "custom", Signals: classify.Signals{Domain: "b.com"}})
	f.Append(Row{Signals: classify.Signals{Domain: "c.com"}})

	rows := f.Rows()
	if len(rows) != 3 {
		t.Fatalf("len = %d", len(rows))
	}
	if rows[0].ID != "row-1" || rows[1].ID != "custom" || rows[2].ID != "row-2" {
		t.Errorf("ids = %q %q %q", rows[0].ID, rows[1].ID, rows[2].ID)
	}
}

func TestFeedChangeCoalesces(t *testing.T) {
	f := NewFeed()
	f.Append(Row{Signals: classify.Signals{Domain: "a.com"}})
	f.Append(Row{Signals: classify.Signals{Domain: "b.com"}})

	select {
	case <-f.Changes():
	default:
		t.Fatal("expected pending change signal")
	}
	select {
	case <-f.Changes():
		t.Fatal("expected signals to coalesce into one")
	default:
	}
}

func TestWatcherClassifiesAppendedRows(t *testing.T) {
	st := testutil.TestState(t)
	feed := NewFeed()
	sink := &recordingSink{}
	w := NewWatcher(feed, st, sink, discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	feed.Append(Row{ID: "r1", Signals: classify.Signals{Domain: "example.com"}})

	eventually(t, time.Second, func() bool {
		_, ok := w.Decision("r1")
		return ok
	}, "row never classified")

	dec, _ := w.Decision("r1")
	if !dec.Visible {
		t.Error("row should be visible with no filters")
	}
	if sink.count(EventRowDecorated) != 1 {
		t.Errorf("decorated events = %d, want 1", sink.count(EventRowDecorated))
	}
}

func TestWatcherReclassifyAfterFilterChange(t *testing.T) {
	st := testutil.TestState(t)
	feed := NewFeed()
	w := NewWatcher(feed, st, &recordingSink{}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	feed.Append(Row{ID: "r1", Signals: classify.Signals{Domain: "ads.com", BlockedIcon: true}})

	eventually(t, time.Second, func() bool {
		dec, ok := w.Decision("r1")
		return ok && dec.Visible
	}, "row never classified visible")

	if _, err := st.ToggleFilter(state.FilterHideBlocked); err != nil {
		t.Fatal(err)
	}
	w.Reclassify()

	eventually(t, time.Second, func() bool {
		dec, ok := w.Decision("r1")
		return ok && !dec.Visible
	}, "row never reclassified hidden")
}

// Repeated passes over unchanged rows must not re-publish row events:
// decoration happens once, classification only on change.
func TestWatcherIdempotentPasses(t *testing.T) {
	st := testutil.TestState(t)
	feed := NewFeed()
	sink := &recordingSink{}
	w := NewWatcher(feed, st, sink, discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	feed.Append(Row{ID: "r1", Signals: classify.Signals{Domain: "example.com"}})

	eventually(t, time.Second, func() bool {
		return sink.count(EventRowClassified) >= 1
	}, "row never classified")

	for i := 0; i < 5; i++ {
		w.Reclassify()
		time.Sleep(20 * time.Millisecond)
	}

	if n := sink.count(EventRowDecorated); n != 1 {
		t.Errorf("decorated events = %d, want 1", n)
	}
	if n := sink.count(EventRowClassified); n != 1 {
		t.Errorf("classified events = %d, want 1 for unchanged decision", n)
	}
}

func TestWatcherRunRejectsStacking(t *testing.T) {
	st := testutil.TestState(t)
	feed := NewFeed()
	w := NewWatcher(feed, st, &recordingSink{}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(20 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("second Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second Run did not return immediately")
	}
}

func TestWatcherSnapshotOrder(t *testing.T) {
	st := testutil.TestState(t)
	feed := NewFeed()
	w := NewWatcher(feed, st, nil, discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	feed.Append(
		Row{ID: "a", Signals: classify.Signals{Domain: "a.com"}},
		Row{ID: "b", Signals: classify.Signals{Domain: "b.com"}},
	)

	eventually(t, time.Second, func() bool {
		_, ok := w.Decision("b")
		return ok
	}, "rows never classified")

	snap := w.Snapshot()
	if len(snap) != 2 || snap[0].Row.ID != "a" || snap[1].Row.ID != "b" {
		t.Errorf("snapshot = %+v", snap)
	}
}
