package driver

import (
	"context"
	"sync"
)

// CancelRegistry maps in-flight query IDs to the cancel function of the
// context the brokerage executed them under, the way the executor/
// dispatcher goroutines in the service layer register a context.CancelFunc
// per in-flight job so an external Cancel call can race the query's own
// timeout (§4.7 "Cancellation").
type CancelRegistry struct {
	mu    sync.Mutex
	items map[string]context.CancelFunc
}

func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{items: make(map[string]context.CancelFunc)}
}

// Register associates queryID with cancel and returns a cleanup func the
// caller must defer-call once the query finishes, successfully or not.
func (c *CancelRegistry) Register(queryID string, cancel context.CancelFunc) (cleanup func()) {
	c.mu.Lock()
	c.items[queryID] = cancel
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.items, queryID)
		c.mu.Unlock()
	}
}

// Cancel invokes the registered cancel func, if the query is still in
// flight. Returns false when the ID is unknown (already finished, or never
// started) — a no-op, not an error, per the original's fire-and-forget
// cancellation semantics.
func (c *CancelRegistry) Cancel(queryID string) bool {
	c.mu.Lock()
	cancel, ok := c.items[queryID]
	c.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}
