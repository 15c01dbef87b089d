package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func recordingDelay(cfg TimingConfig) (*TimingDelay, *[]time.Duration) {
	var slept []time.Duration
	td := NewTimingDelay(cfg)
	td.sleep = func(d time.Duration) { slept = append(slept, d) }
	return td, &slept
}

func TestTimingDelay_WaitFrom_OnFailure(t *testing.T) {
	td, slept := recordingDelay(TimingConfig{BaseDelayMs: 100, RandomDelayMs: 50})

	td.WaitFrom(time.Now(), false)

	if assert.Len(t, *slept, 1) {
		assert.Greater(t, (*slept)[0], 90*time.Millisecond)
		assert.LessOrEqual(t, (*slept)[0], 150*time.Millisecond)
	}
}

func TestTimingDelay_WaitFrom_OnSuccess_NoDelay(t *testing.T) {
	td, slept := recordingDelay(TimingConfig{BaseDelayMs: 100})

	td.WaitFrom(time.Now(), true)

	assert.Empty(t, *slept)
}

func TestTimingDelay_WaitFrom_OnSuccess_WithDelay(t *testing.T) {
	td, slept := recordingDelay(TimingConfig{BaseDelayMs: 100, DelayOnSuccess: true})

	td.WaitFrom(time.Now(), true)

	assert.Len(t, *slept, 1)
}

func TestTimingDelay_WaitFrom_AdjustsForElapsedTime(t *testing.T) {
	td, slept := recordingDelay(TimingConfig{BaseDelayMs: 100})

	td.WaitFrom(time.Now().Add(-60*time.Millisecond), false)

	if assert.Len(t, *slept, 1) {
		assert.LessOrEqual(t, (*slept)[0], 40*time.Millisecond)
	}
}

func TestTimingDelay_WaitFrom_NoWaitIfAlreadyExceeded(t *testing.T) {
	td, slept := recordingDelay(TimingConfig{BaseDelayMs: 50})

	td.WaitFrom(time.Now().Add(-time.Second), false)

	assert.Empty(t, *slept)
}

func TestTimingDelay_NilIsNoop(t *testing.T) {
	var td *TimingDelay
	assert.NotPanics(t, func() { td.WaitFrom(time.Now(), false) })
}
