package risk

import (
	"sync"
	"time"
)

// CooldownTracker records the last trade time per address so the gates
// stage can reject a rebuy within REBUY_COOLDOWN_MIN.
type CooldownTracker struct {
	mu         sync.Mutex
	lastTraded map[string]time.Time
}

func NewCooldownTracker() *CooldownTracker {
	return &CooldownTracker{lastTraded: make(map[string]time.Time)}
}

func (c *CooldownTracker) MarkTraded(address string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastTraded[address] = at
}

// RecentlyTraded reports whether address traded within cooldownMin of now.
func (c *CooldownTracker) RecentlyTraded(address string, cooldownMin float64, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.lastTraded[address]
	if !ok {
		return false
	}
	return now.Sub(last) < time.Duration(cooldownMin*float64(time.Minute))
}
