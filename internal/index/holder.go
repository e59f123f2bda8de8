package index

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Holder owns the current index generation. Reads are lock free; swaps are
// serialized so generation numbers increase in publish order.
type Holder struct {
	current atomic.Pointer[Index]

	mu   sync.Mutex
	next uint64
}

// NewHolder returns a holder publishing ix, or an empty index when ix is nil.
func NewHolder(ix *Index) *Holder {
	h := &Holder{}
	if ix == nil {
		ix = Build(nil)
	}
	h.Swap(ix)
	return h
}

// Current returns the published generation. It is never nil.
func (h *Holder) Current() *Index {
	return h.current.Load()
}

// Swap publishes ix as the next generation and returns the previous one.
// ix must be freshly built: an index is published at most once.
func (h *Holder) Swap(ix *Index) *Index {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	ix.Generation = h.next
	old := h.current.Swap(ix)

	slog.Debug("index_swapped",
		slog.Uint64("generation", ix.Generation),
		slog.Int("records", ix.Len()))

	return old
}
