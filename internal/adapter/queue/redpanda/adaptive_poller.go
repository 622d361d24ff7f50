package redpanda

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// AdaptivePoller sizes the pause between polls. Empty polls shrink it toward
// minInterval; failed polls back it off toward maxInterval.
type AdaptivePoller struct {
	mu                 sync.Mutex
	baseInterval       time.Duration
	minInterval        time.Duration
	maxInterval        time.Duration
	backoffFactor      float64
	consecutiveSuccess int
	consecutiveFailure int
}

// breakerThreshold is the number of consecutive failures after which the
// poller stops backing off gradually and waits maxInterval.
const breakerThreshold = 10

// NewAdaptivePoller creates a poller around baseInterval.
func NewAdaptivePoller(baseInterval time.Duration) *AdaptivePoller {
	if baseInterval <= 0 {
		baseInterval = time.Second
	}
	return &AdaptivePoller{
		baseInterval:  baseInterval,
		minInterval:   100 * time.Millisecond,
		maxInterval:   10 * time.Second,
		backoffFactor: 1.5,
	}
}

// NextInterval returns the pause before the next poll.
func (p *AdaptivePoller) NextInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.consecutiveFailure >= breakerThreshold {
		return p.maxInterval
	}
	if p.consecutiveFailure > 0 {
		iv := float64(p.baseInterval) * math.Pow(p.backoffFactor, float64(p.consecutiveFailure))
		iv += iv * 0.1 * (rand.Float64() - 0.5)
		return clamp(time.Duration(iv), p.baseInterval, p.maxInterval)
	}
	iv := float64(p.baseInterval) / float64(p.consecutiveSuccess+1)
	return clamp(time.Duration(iv), p.minInterval, p.baseInterval)
}

// RecordSuccess records a poll without errors.
func (p *AdaptivePoller) RecordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consecutiveSuccess++
	p.consecutiveFailure = 0
}

// RecordFailure records a poll that returned errors.
func (p *AdaptivePoller) RecordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consecutiveFailure++
	p.consecutiveSuccess = 0
}

// Healthy is false once the failure breaker has tripped.
func (p *AdaptivePoller) Healthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.consecutiveFailure < breakerThreshold
}

func clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
