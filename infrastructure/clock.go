package infrastructure

import "time"

// SystemClock reads wall time in UTC
type SystemClock struct{}

// NewSystemClock creates a new system clock
func NewSystemClock() SystemClock {
	return SystemClock{}
}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
