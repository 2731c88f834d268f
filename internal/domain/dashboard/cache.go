package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/medibook/booking/internal/domain/identity"
	"github.com/medibook/booking/internal/domain/scheduling"
	"github.com/medibook/booking/internal/platform/clock"
)

type cacheEntry struct {
	summary *Summary
	expires time.Time
}

// Cache keeps summaries per user for a short TTL. It listens for appointment
// changes and drops every entry the change could affect.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   clock.Clock
	gen     uint64
	entries map[identity.Actor]cacheEntry
}

// NewCache returns nil when ttl is not positive, which disables caching.
func NewCache(ttl time.Duration, clk clock.Clock) *Cache {
	if ttl <= 0 {
		return nil
	}
	return &Cache{ttl: ttl, clock: clk, entries: make(map[identity.Actor]cacheEntry)}
}

func (c *Cache) Get(actor identity.Actor) (*Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[actor]
	if !ok {
		return nil, false
	}
	if !c.clock.Now().Before(e.expires) {
		delete(c.entries, actor)
		return nil, false
	}
	return e.summary, true
}

// Generation changes on every invalidation. Read it before computing a
// summary and hand it back to Put.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Put stores s unless an invalidation happened since gen was read.
func (c *Cache) Put(actor identity.Actor, s *Summary, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.entries[actor] = cacheEntry{summary: s, expires: c.clock.Now().Add(c.ttl)}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// AppointmentChanged drops the patient's, the doctor's and every admin's
// summary.
func (c *Cache) AppointmentChanged(_ context.Context, a scheduling.Appointment, _ scheduling.StatusChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	delete(c.entries, identity.Actor{ID: a.PatientID, Role: identity.RolePatient})
	delete(c.entries, identity.Actor{ID: a.DoctorID, Role: identity.RoleDoctor})
	for actor := range c.entries {
		if actor.Role == identity.RoleAdmin {
			delete(c.entries, actor)
		}
	}
}
