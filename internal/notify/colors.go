package notify

import "time"

// colorCycler walks a widget's color sequence at a fixed period.
// Every method is called with the manager lock held; schedule wraps the
// tick so it also runs under that lock.
type colorCycler struct {
	schedule func(time.Duration, func()) Timer
	period   time.Duration
	stops    []ColorStop
	apply    func(color string)

	index   int
	current string
	timer   Timer
	stopped bool
}

func newColorCycler(schedule func(time.Duration, func()) Timer, period time.Duration, stops []ColorStop, apply func(string)) *colorCycler {
	return &colorCycler{
		schedule: schedule,
		period:   period,
		stops:    append([]ColorStop(nil), stops...),
		apply:    apply,
	}
}

// Start arms the first tick. The first tick applies stops[0].
func (c *colorCycler) Start() {
	if c.stopped || len(c.stops) == 0 || c.period <= 0 {
		return
	}
	c.timer = c.schedule(c.period, c.tick)
}

func (c *colorCycler) tick() {
	if c.stopped {
		return
	}
	c.current = c.stops[c.index].Color
	c.index = (c.index + 1) % len(c.stops)
	c.apply(c.current)
	if !c.stopped {
		c.timer = c.schedule(c.period, c.tick)
	}
}

// Stop cancels the pending tick. Safe to call more than once.
func (c *colorCycler) Stop() {
	if c.stopped {
		return
	}
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Index is the position of the next color to apply.
func (c *colorCycler) Index() int {
	return c.index
}

// Current is the last applied color, empty before the first tick.
func (c *colorCycler) Current() string {
	return c.current
}
