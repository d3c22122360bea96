package testhelpers

import (
	"fmt"
	"sync"
	"time"
)

// FixedClock returns a settable instant
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock stopped at now
func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SequenceEntropy replays fixed draws, reducing each modulo n
type SequenceEntropy struct {
	mu    sync.Mutex
	draws []int
	next  int
}

// NewSequenceEntropy creates an entropy source cycling through draws
func NewSequenceEntropy(draws ...int) *SequenceEntropy {
	return &SequenceEntropy{draws: draws}
}

func (e *SequenceEntropy) Intn(n int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.draws) == 0 {
		return 0, nil
	}
	v := e.draws[e.next%len(e.draws)] % n
	e.next++
	return v, nil
}

// FailingEntropy always returns an error
type FailingEntropy struct{}

func (FailingEntropy) Intn(n int) (int, error) {
	return 0, fmt.Errorf("entropy exhausted")
}
