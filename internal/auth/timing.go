package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for timing attack prevention
type TimingConfig struct {
	BaseDelayMs    int  // Base delay in milliseconds
	RandomDelayMs  int  // Random delay range in milliseconds
	DelayOnSuccess bool // If true, delay even on successful login
}

// TimingDelay pads credential checks so that "unknown email" and
// "wrong password" take about the same time
type TimingDelay struct {
	config TimingConfig
	sleep  func(time.Duration)
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
		sleep:  time.Sleep,
	}
}

// cryptoRandIntn returns a secure random number in [0, max)
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint64(randomBytes) % uint64(max)), nil
}

func (td *TimingDelay) target() time.Duration {
	d := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if n, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
			d += time.Duration(n) * time.Millisecond
		}
	}
	return d
}

// WaitFrom sleeps until at least the target delay has elapsed since start.
// Successful checks return at once unless DelayOnSuccess is set.
func (td *TimingDelay) WaitFrom(start time.Time, success bool) {
	if td == nil || (success && !td.config.DelayOnSuccess) {
		return
	}

	if remaining := td.target() - time.Since(start); remaining > 0 {
		td.sleep(remaining)
	}
}
