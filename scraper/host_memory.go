package scraper

import (
	"sync"
	"time"
)

// hostMemory remembers hosts whose TLS stack rejected the Chrome
// fingerprint, so later requests go straight to the plain client.
type hostMemory struct {
	store sync.Map // host (string) -> time.Time (expiry)
	ttl   time.Duration
	now   func() time.Time
}

func newHostMemory(ttl time.Duration) *hostMemory {
	return &hostMemory{ttl: ttl, now: time.Now}
}

// plain reports whether host should skip the fingerprinted client.
func (m *hostMemory) plain(host string) bool {
	val, ok := m.store.Load(host)
	if !ok {
		return false
	}
	if m.now().After(val.(time.Time)) {
		m.store.Delete(host)
		return false
	}
	return true
}

func (m *hostMemory) remember(host string) {
	m.store.Store(host, m.now().Add(m.ttl))
}

func (m *hostMemory) forget(host string) {
	m.store.Delete(host)
}
