// Package logview tracks the host page's log rows and keeps their
// classification current as rows are appended.
//
// The host-driven reactive model is expressed as an observable Container
// the watcher consumes, so tests inject synthetic change events and the
// browser shim's NDJSON feed is just one producer.
package logview

import (
	"fmt"
	"sync"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/classify"
)

// Row is one log row as observed on the host page.
type Row struct {
	ID      string           `json:"id"`
	Signals classify.Signals `json:"signals"`
}

// Container is the observable log container: a snapshot of currently
// present rows plus a coalesced change notification.
type Container interface {
	// Rows returns all currently present rows in append order.
	Rows() []Row
	// Changes is signaled after any batch of appended rows. The channel
	// coalesces: one pending signal covers any number of batches.
	Changes() <-chan struct{}
}

// Feed is the in-memory Container implementation. Producers append rows;
// the watcher observes. Rows are never removed: the host page only
// appends within one page load.
type Feed struct {
	mu   sync.Mutex
	rows []Row
	seq  int
	ch   chan struct{}
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{ch: make(chan struct{}, 1)}
}

// Append adds a batch of rows and signals the change channel. Rows with
// an empty ID are assigned a sequential one.
func (f *Feed) Append(rows ...Row) {
	if len(rows) == 0 {
		return
	}
	f.mu.Lock()
	for _, r := range rows {
		if r.ID == "" {
			f.seq++
			r.ID = fmt.Sprintf("row-%d", f.seq)
		}
		f.rows = append(f.rows, r)
	}
	f.mu.Unlock()

	select {
	case f.ch <- struct{}{}:
	default:
		// A signal is already pending; the watcher re-reads everything.
	}
}

// Rows returns a snapshot of all rows in append order.
func (f *Feed) Rows() []Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Row, len(f.rows))
	copy(out, f.rows)
	return out
}

// Changes returns the coalesced change channel.
func (f *Feed) Changes() <-chan struct{} {
	return f.ch
}

// Len returns the number of rows currently present.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}
