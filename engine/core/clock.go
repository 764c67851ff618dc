package core

import (
	"time"

	"github.com/loov/hrtime"
)

// Clock measures elapsed time against the monotonic high resolution timer.
type Clock struct {
	startTime time.Duration
	elapsed   time.Duration
	running   bool
	now       func() time.Duration
}

func NewClock() *Clock {
	return &Clock{now: hrtime.Now}
}

// Updates the provided clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.running {
		c.elapsed = c.now() - c.startTime
	}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = c.now()
	c.elapsed = 0
	c.running = true
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.running = false
}

// Elapsed returns the seconds between Start and the last Update.
func (c *Clock) Elapsed() float64 {
	return c.elapsed.Seconds()
}
