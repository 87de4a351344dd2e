// Package health reports readiness of the backends the auth service depends on.
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"

	defaultTimeout = 2 * time.Second
)

// Pinger is implemented by a backend that can be probed, e.g. *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Report is the outcome of one readiness check. Components maps each backend name to
// StatusOK or StatusUnavailable.
type Report struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
	CheckedAt  time.Time         `json:"checked_at"`
}

// Healthy reports whether every component answered.
func (r Report) Healthy() bool { return r.Status == StatusOK }

// Checker probes a set of named backends concurrently.
type Checker struct {
	mu      sync.RWMutex
	pingers map[string]Pinger
	timeout time.Duration
}

// NewChecker returns a Checker that gives each probe timeout to answer; 0 means two seconds.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Checker{pingers: make(map[string]Pinger), timeout: timeout}
}

// Add registers p under name, replacing any pinger with the same name. A nil p is ignored.
func (c *Checker) Add(name string, p Pinger) {
	if p == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingers[name] = p
}

// Names returns the registered component names, sorted.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.pingers))
	for name := range c.pingers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check pings every component and returns the combined report. A checker with no
// components is healthy.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	pingers := make(map[string]Pinger, len(c.pingers))
	for name, p := range c.pingers {
		pingers[name] = p
	}
	c.mu.RUnlock()

	report := Report{Status: StatusOK, Components: make(map[string]string, len(pingers)), CheckedAt: time.Now().UTC()}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, p := range pingers {
		wg.Add(1)
		go func(name string, p Pinger) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			state := StatusOK
			if err := p.Ping(pctx); err != nil {
				state = StatusUnavailable
			}
			mu.Lock()
			report.Components[name] = state
			if state != StatusOK {
				report.Status = StatusUnavailable
			}
			mu.Unlock()
		}(name, p)
	}
	wg.Wait()
	return report
}
