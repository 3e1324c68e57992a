package arcgis

import (
	"context"
	"sync"
	"time"
)

// HealthStatus is the result of one service probe.
type HealthStatus struct {
	Alive      bool
	RTT        time.Duration
	LayerCount int
	Err        string
	CheckedAt  time.Time
}

// HealthCache stores probe results keyed by service URL. The caller
// owns the freshness policy; the client only reads and writes.
type HealthCache interface {
	Get(serviceURL string) (HealthStatus, bool)
	Set(serviceURL string, status HealthStatus)
}

// MemoryHealthCache is a mutex-guarded in-memory HealthCache safe for
// concurrent probes.
type MemoryHealthCache struct {
	mu      sync.Mutex
	entries map[string]HealthStatus
}

// NewMemoryHealthCache creates an empty cache.
func NewMemoryHealthCache() *MemoryHealthCache {
	return &MemoryHealthCache{entries: make(map[string]HealthStatus)}
}

// Get returns the cached status for a service URL.
func (m *MemoryHealthCache) Get(serviceURL string) (HealthStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.entries[serviceURL]
	return s, ok
}

// Set records the status for a service URL.
func (m *MemoryHealthCache) Set(serviceURL string, status HealthStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[serviceURL] = status
}

// Health probes a service with the short health timeout. Failures are
// folded into the Alive flag; Health never returns an error. If a
// cache is injected, a cached result is returned as-is and fresh
// results are written back.
func (c *client) Health(ctx context.Context, serviceURL string) HealthStatus {
	if c.healthCache != nil {
		if status, ok := c.healthCache.Get(serviceURL); ok {
			return status
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	start := time.Now()
	var resp serviceResponse
	err := c.fetchJSON(probeCtx, serviceURL, nil, &resp)
	status := HealthStatus{
		Alive:     err == nil,
		RTT:       time.Since(start),
		CheckedAt: start,
	}
	if err != nil {
		status.Err = err.Error()
	} else {
		status.LayerCount = len(resp.Layers)
	}

	if c.healthCache != nil {
		c.healthCache.Set(serviceURL, status)
	}
	return status
}
