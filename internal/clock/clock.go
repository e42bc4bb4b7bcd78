package clock

import "time"

// Clock provides the current time; tests substitute a Mock.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// New creates a new RealClock.
func New() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

// Mock is a settable Clock for tests.
type Mock struct {
	CurrentTime time.Time
}

var _ Clock = (*Mock)(nil)

// NewMock creates a Mock set to t.
func NewMock(t time.Time) *Mock {
	return &Mock{CurrentTime: t}
}

func (c *Mock) Now() time.Time {
	return c.CurrentTime
}

// Advance moves the clock forward by d.
func (c *Mock) Advance(d time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(d)
}

// Set moves the clock to t.
func (c *Mock) Set(t time.Time) {
	c.CurrentTime = t
}
