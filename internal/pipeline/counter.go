package pipeline

import (
	"sync"
	"sync/atomic"
)

// RunCounter hands out strictly increasing run indexes. It is shared by
// every orchestrator in a process and safe for concurrent use.
type RunCounter struct {
	mu   sync.Mutex
	next int64
}

// NewRunCounter returns a counter whose first index is 0.
func NewRunCounter() *RunCounter {
	return &RunCounter{}
}

// Next returns the current index and advances the counter.
func (c *RunCounter) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.next
	c.next++
	return idx
}

// Reset sets the next index back to 0.
func (c *RunCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = 0
}

// Toggle is the process-wide enable switch for the pass.
type Toggle struct {
	enabled atomic.Bool
}

// NewToggle returns a toggle in the given state.
func NewToggle(enabled bool) *Toggle {
	t := &Toggle{}
	t.enabled.Store(enabled)
	return t
}

func (t *Toggle) Enable()  { t.enabled.Store(true) }
func (t *Toggle) Disable() { t.enabled.Store(false) }

// Enabled reports the current state.
func (t *Toggle) Enabled() bool { return t.enabled.Load() }
