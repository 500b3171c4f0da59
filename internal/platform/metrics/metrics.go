package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector keeps process-local counters for HTTP traffic and for the
// outcomes of report classification and leave evaluation.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	mu       sync.Mutex
	outcomes map[string]map[string]uint64
}

func New() *Collector {
	return &Collector{outcomes: map[string]map[string]uint64{}}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// Outcome counts one labelled result, e.g. Outcome("report_status", "LateFine").
func (c *Collector) Outcome(kind, label string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	byLabel, ok := c.outcomes[kind]
	if !ok {
		byLabel = map[string]uint64{}
		c.outcomes[kind] = byLabel
	}
	byLabel[label]++
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	outcomes := make(map[string]map[string]uint64, len(c.outcomes))
	for kind, byLabel := range c.outcomes {
		copied := make(map[string]uint64, len(byLabel))
		for label, n := range byLabel {
			copied[label] = n
		}
		outcomes[kind] = copied
	}
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      errs,
		"rateLimitedTotal": limited,
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
		"outcomes":         outcomes,
	}
}
