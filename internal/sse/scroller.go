package sse

import "sync/atomic"

// Scroll command events consumed by the shim.
const (
	EventScrollBottom = "command.scrollBottom"
	EventScrollTo     = "command.scrollTo"
)

// Scroller bridges the preload controller to the shim: scroll requests
// go out as command events, and the shim reports its offset back through
// the REST surface.
type Scroller struct {
	b      *Broker
	offset atomic.Int64
}

// NewScroller creates a scroller publishing through b.
func NewScroller(b *Broker) *Scroller {
	return &Scroller{b: b}
}

// ReportOffset records the shim's last reported scroll offset.
func (s *Scroller) ReportOffset(offset int) {
	s.offset.Store(int64(offset))
}

// Offset returns the last reported scroll offset.
func (s *Scroller) Offset() int {
	return int(s.offset.Load())
}

// ScrollToBottom asks the shim to scroll to the document's current bottom.
func (s *Scroller) ScrollToBottom() {
	s.b.Publish(EventScrollBottom, nil)
}

// ScrollTo asks the shim to restore an absolute offset.
func (s *Scroller) ScrollTo(offset int) {
	s.b.Publish(EventScrollTo, map[string]int{"offset": offset})
}
