package sleeper

import (
	"errors"
	"time"
)

// ErrInvalidDuration happens when the initial delay is not positive
// or exceeds the maximum delay.
var ErrInvalidDuration = errors.New("invalid sleep duration")

// exponentialBackoffSleeper doubles the delay after every sleep
// until it reaches the maximum.
type exponentialBackoffSleeper struct {
	initial       time.Duration
	max           time.Duration
	sleepDuration time.Duration

	sleep func(time.Duration)
}

// NewExponentialSleeper creates a sleeper that starts at initial.
// A zero max leaves the delay unbounded.
func NewExponentialSleeper(initial, max time.Duration) (*exponentialBackoffSleeper, error) {
	if initial <= 0 || (max > 0 && initial > max) {
		return nil, ErrInvalidDuration
	}

	return &exponentialBackoffSleeper{
		initial:       initial,
		max:           max,
		sleepDuration: initial,
		sleep:         time.Sleep,
	}, nil
}

// Sleep blocks for the current delay and doubles it.
func (e *exponentialBackoffSleeper) Sleep() {
	e.sleep(e.sleepDuration)
	e.sleepDuration += e.sleepDuration
	if e.max > 0 && e.sleepDuration > e.max {
		e.sleepDuration = e.max
	}
}

// Reset
func (e *exponentialBackoffSleeper) Reset() {
	e.sleepDuration = e.initial
}
