package models

import "time"

// DefaultStep is one calendar day, matching daily bar data.
const DefaultStep = 24 * time.Hour

// Clock is the simulated clock. Step is a configuration parameter so the
// same loop supports daily and intraday granularity.
type Clock struct {
	CurrentTime time.Time
	EndTime     time.Time
	Step        time.Duration
}

func NewClock(startTime, endTime time.Time, step time.Duration) *Clock {
	if step <= 0 {
		step = DefaultStep
	}

	return &Clock{
		CurrentTime: startTime,
		EndTime:     endTime,
		Step:        step,
	}
}

func (c *Clock) Advance() {
	c.CurrentTime = c.CurrentTime.Add(c.Step)
}

func (c *Clock) IsExpired() bool {
	return c.CurrentTime.After(c.EndTime)
}
