package utils

import "time"

// Timer measures wall-clock time from its creation.
type Timer struct {
	startTime time.Time
}

// NewTimer returns a running Timer.
func NewTimer() *Timer {
	return &Timer{startTime: time.Now()}
}

// Elapsed returns the time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.startTime)
}

// Milliseconds returns Elapsed as fractional milliseconds, the unit the
// duration histograms record.
func (t *Timer) Milliseconds() float64 {
	return float64(t.Elapsed().Microseconds()) / 1000
}
