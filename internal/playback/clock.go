package playback

import (
	"sync"
	"time"
)

// DefaultResolution is the reference tick resolution.
const DefaultResolution = 100 * time.Millisecond

// Clock is a periodic tick source with a fixed resolution.
//
// Arm starts emission, replacing any previously armed callback with a fresh period. Suspend stops
// emission and keeps the position within the current period; the next Arm resumes from that phase
// with no catch-up ticks. Cancel stops emission, forgets the phase and is idempotent.
type Clock interface {
	Arm(onTick func(delta time.Duration))
	Suspend()
	Cancel()
	Resolution() time.Duration
}

var (
	_ Clock = (*TickerClock)(nil)
	_ Clock = (*ManualClock)(nil)
)

// TickerClock emits ticks from a [time.Ticker] on its own goroutine.
type TickerClock struct {
	resolution time.Duration
	now        func() time.Time

	mu    sync.Mutex
	stop  chan struct{}
	phase time.Time     // start of the running period
	carry time.Duration // progress into the period saved by Suspend
}

// NewTickerClock creates a TickerClock. A non-positive resolution uses [DefaultResolution].
func NewTickerClock(resolution time.Duration) *TickerClock {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &TickerClock{resolution: resolution, now: time.Now}
}

// Resolution returns the tick period.
func (c *TickerClock) Resolution() time.Duration { return c.resolution }

// Arm delivers ticks to onTick. Arming a running clock stops it and starts a full period; arming a
// suspended clock fires the first tick once the rest of the saved period has elapsed.
func (c *TickerClock) Arm(onTick func(delta time.Duration)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	carry := c.carry
	if c.stop != nil {
		c.stopLocked()
		carry = 0
	}
	c.carry = 0

	stop := make(chan struct{})
	c.stop = stop
	c.phase = c.now().Add(-carry)

	go c.run(stop, c.resolution-carry, onTick)
}

func (c *TickerClock) run(stop chan struct{}, first time.Duration, onTick func(time.Duration)) {
	timer := time.NewTimer(first)
	defer timer.Stop()

	var ticker *time.Ticker
	ticks := timer.C
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-stop:
			return
		case <-ticks:
		}

		if !c.mark(stop) {
			return
		}
		if ticker == nil {
			ticker = time.NewTicker(c.resolution)
			ticks = ticker.C
		}
		onTick(c.resolution)
	}
}

// mark records the start of a new period, reporting false once stop is no longer the live run.
func (c *TickerClock) mark(stop chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != stop {
		return false
	}
	c.phase = c.now()
	return true
}

// Suspend stops emission, saving how far the current period has run.
func (c *TickerClock) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop == nil {
		return
	}

	since := c.now().Sub(c.phase)
	switch {
	case since < 0:
		since = 0
	case since >= c.resolution:
		// a tick was due but not delivered; it fires as soon as the clock is armed again
		since = c.resolution - 1
	}
	c.carry = since
	c.stopLocked()
}

// Cancel stops emission. Safe to call repeatedly.
//
// A tick already being delivered when Cancel runs may still reach its callback;
// callers gate ticks on their own epoch.
func (c *TickerClock) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.carry = 0
}

func (c *TickerClock) stopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// ManualClock delivers ticks only when Advance is called.
type ManualClock struct {
	resolution time.Duration

	mu       sync.Mutex
	onTick   func(time.Duration)
	arms     int
	cancels  int
	suspends int
}

// NewManualClock creates a ManualClock. A non-positive resolution uses [DefaultResolution].
func NewManualClock(resolution time.Duration) *ManualClock {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &ManualClock{resolution: resolution}
}

// Resolution returns the tick period.
func (c *ManualClock) Resolution() time.Duration { return c.resolution }

// Arm records onTick as the live callback.
func (c *ManualClock) Arm(onTick func(delta time.Duration)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arms++
	c.onTick = onTick
}

// Suspend drops the live callback.
func (c *ManualClock) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspends++
	c.onTick = nil
}

// Cancel drops the live callback.
func (c *ManualClock) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels++
	c.onTick = nil
}

// Armed reports whether a callback is live.
func (c *ManualClock) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onTick != nil
}

// Arms returns how many times Arm has been called.
func (c *ManualClock) Arms() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.arms
}

// Advance fires up to n ticks, stopping early once the clock is no longer armed.
// It returns the number of ticks delivered.
//
// The live callback is re-read before every tick, so a callback that re-arms the clock
// hands the remaining ticks to its replacement.
func (c *ManualClock) Advance(n int) int {
	fired := 0
	for range n {
		c.mu.Lock()
		fn := c.onTick
		c.mu.Unlock()
		if fn == nil {
			break
		}
		fn(c.resolution)
		fired++
	}
	return fired
}
