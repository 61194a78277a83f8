// Package collector runs the background loop that periodically samples
// system resource metrics and publishes them to the dashboard.
package collector

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/agenttop/agenttop/internal/telemetry"
)

// Sampler produces one system resource reading. Implementations may fail
// transiently (e.g. an OS query error); the collector logs the failure and
// continues with the next interval.
type Sampler interface {
	Sample() (telemetry.SystemSample, error)
}

// Collector owns one background goroutine that samples on a fixed
// interval. Its lifecycle is stopped -> running -> stopped; Stop is
// cooperative and synchronous, bounded by one interval.
type Collector struct {
	sampler  Sampler
	interval time.Duration
	onSample func(telemetry.SystemSample)

	running atomic.Bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New creates a Collector. onSample is invoked on the collector goroutine
// for every successful sample; the dashboard uses it to publish the sample
// under its write lock. The callback must not block on I/O.
func New(sampler Sampler, interval time.Duration, onSample func(telemetry.SystemSample)) *Collector {
	if interval <= 0 {
		interval = time.Second
	}
	return &Collector{
		sampler:  sampler,
		interval: interval,
		onSample: onSample,
	}
}

// Start spawns the background sampling goroutine. Calling Start while the
// collector is already running is a no-op.
func (c *Collector) Start() {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	go c.loop(c.stopCh, c.done)
}

// Stop signals the background goroutine and blocks until it has exited.
// The wait is bounded by at most one collection interval. Calling Stop on
// a stopped collector is a no-op.
func (c *Collector) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	close(c.stopCh)
	<-c.done
}

// Running reports whether the background goroutine is active.
func (c *Collector) Running() bool {
	return c.running.Load()
}

// loop samples, publishes, and sleeps until the stop signal is observed.
// Cancellation takes effect at the next iteration boundary, never
// mid-sample.
func (c *Collector) loop(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		sample, err := c.sampler.Sample()
		if err != nil {
			log.Printf("WARNING: system sample failed: %v", err)
		} else if c.onSample != nil {
			c.onSample(sample)
		}

		select {
		case <-stopCh:
			return
		case <-time.After(c.interval):
		}
	}
}
