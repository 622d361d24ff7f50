package redpanda

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdaptivePoller_SuccessShrinksInterval(t *testing.T) {
	p := NewAdaptivePoller(time.Second)
	assert.Equal(t, time.Second, p.NextInterval())

	for i := 0; i < 3; i++ {
		p.RecordSuccess()
	}
	iv := p.NextInterval()
	assert.Equal(t, 250*time.Millisecond, iv)

	for i := 0; i < 100; i++ {
		p.RecordSuccess()
	}
	assert.Equal(t, p.minInterval, p.NextInterval())
	assert.True(t, p.Healthy())
}

func TestAdaptivePoller_FailureBacksOff(t *testing.T) {
	p := NewAdaptivePoller(time.Second)
	for i := 0; i < 3; i++ {
		p.RecordFailure()
	}
	iv := p.NextInterval()
	assert.Greater(t, iv, time.Second)
	assert.LessOrEqual(t, iv, p.maxInterval)
	assert.True(t, p.Healthy())

	for i := 0; i < breakerThreshold; i++ {
		p.RecordFailure()
	}
	assert.Equal(t, p.maxInterval, p.NextInterval())
	assert.False(t, p.Healthy())

	p.RecordSuccess()
	assert.True(t, p.Healthy())
	assert.LessOrEqual(t, p.NextInterval(), time.Second)
}

func TestAdaptivePoller_DefaultsBase(t *testing.T) {
	p := NewAdaptivePoller(0)
	assert.Equal(t, time.Second, p.baseInterval)
}
