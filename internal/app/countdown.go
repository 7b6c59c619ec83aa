package app

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// CountdownState is the driver's position in Idle -> Running -> Expired.
type CountdownState int

const (
	CountdownIdle CountdownState = iota
	CountdownRunning
	CountdownExpired
)

func (s CountdownState) String() string {
	switch s {
	case CountdownRunning:
		return "running"
	case CountdownExpired:
		return "expired"
	default:
		return "idle"
	}
}

// Countdown owns the single recurring decrement schedule of one room.
// It is not self-locking: every method runs under the owning room's lock.
// The schedule goroutine only signals; it calls fire with its generation and
// the room re-enters through Tick, which drops ticks from a replaced schedule.
type Countdown struct {
	clock     clockwork.Clock
	interval  time.Duration
	fire      func(gen uint64)
	state     CountdownState
	remaining time.Duration
	gen       uint64
	ticker    clockwork.Ticker
	stop      chan struct{}
}

func newCountdown(clock clockwork.Clock, interval time.Duration, fire func(gen uint64)) *Countdown {
	return &Countdown{clock: clock, interval: interval, fire: fire}
}

// Start cancels any live schedule, then counts down from d.
func (c *Countdown) Start(d time.Duration) {
	c.Cancel()

	c.gen++
	c.remaining = d
	c.state = CountdownRunning
	c.ticker = c.clock.NewTicker(c.interval)
	c.stop = make(chan struct{})

	go run(c.ticker, c.stop, c.gen, c.fire)
}

func run(ticker clockwork.Ticker, stop <-chan struct{}, gen uint64, fire func(uint64)) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			select {
			case <-stop:
				return
			default:
			}
			fire(gen)
		}
	}
}

// Cancel stops the live schedule; safe when none is active.
func (c *Countdown) Cancel() {
	if c.ticker != nil {
		c.ticker.Stop()
		close(c.stop)
		c.ticker = nil
		c.stop = nil
	}
	if c.state == CountdownRunning {
		c.state = CountdownIdle
	}
}

// Reset cancels and returns to Idle, as at session end.
func (c *Countdown) Reset() {
	c.Cancel()
	c.state = CountdownIdle
	c.remaining = 0
}

// Tick applies one decrement for schedule gen. ok is false for a stale or
// cancelled schedule. On reaching zero the schedule is cancelled and the
// state becomes Expired.
func (c *Countdown) Tick(gen uint64) (remaining time.Duration, expired, ok bool) {
	if gen != c.gen || c.state != CountdownRunning {
		return c.remaining, false, false
	}
	c.remaining -= c.interval
	if c.remaining <= 0 {
		c.remaining = 0
		c.Cancel()
		c.state = CountdownExpired
		return 0, true, true
	}
	return c.remaining, false, true
}

func (c *Countdown) State() CountdownState { return c.state }

func (c *Countdown) Remaining() time.Duration { return c.remaining }

// Live reports whether a decrement schedule is active.
func (c *Countdown) Live() bool { return c.ticker != nil }
