package alerts

import (
	"sync"
	"time"
)

// cooldownTracker remembers when each alert key was last delivered.
type cooldownTracker struct {
	window time.Duration
	now    func() time.Time
	sent   map[string]time.Time
	mu     sync.RWMutex
}

func newCooldownTracker(window time.Duration, now func() time.Time) *cooldownTracker {
	return &cooldownTracker{
		window: window,
		now:    now,
		sent:   make(map[string]time.Time),
	}
}

func (c *cooldownTracker) allow(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	last, exists := c.sent[key]
	return !exists || c.now().Sub(last) >= c.window
}

func (c *cooldownTracker) mark(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent[key] = c.now()
}
