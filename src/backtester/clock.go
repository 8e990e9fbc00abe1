package backtester

import (
	"fmt"
	"time"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

// Clock drives the simulation. Crypto venues trade around the clock, so
// there is no market calendar: every step is a tick.
type Clock struct {
	CurrentTime time.Time
	EndTime     time.Time
}

func NewClock(startTime, endTime time.Time) (*Clock, error) {
	if !startTime.Before(endTime) {
		return nil, fmt.Errorf("%w: start %s must precede end %s", models.ErrInvalidConfig, startTime, endTime)
	}

	return &Clock{
		CurrentTime: startTime,
		EndTime:     endTime,
	}, nil
}

func (c *Clock) Add(timeToAdd time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(timeToAdd)
}

func (c *Clock) IsExpired() bool {
	return c.CurrentTime.Equal(c.EndTime) || c.CurrentTime.After(c.EndTime)
}
