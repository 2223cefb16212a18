package signal

import (
	"context"
	"time"
)

// Tick is one scheduler step. All pose sampling and derived signal
// propagation happens synchronously inside a tick.
type Tick struct {
	// Seq increments by one per tick, starting at 1.
	Seq uint64
	// Time is the wall-clock time of the tick.
	Time time.Time
	// DT is the elapsed time since the previous tick. Zero on the
	// first tick.
	DT time.Duration
}

// Clock is the tick source driving the engine.
type Clock interface {
	Signal[Tick]
}

// Ticker is the production Clock, driven by a time.Ticker.
type Ticker struct {
	*Source[Tick]
	interval time.Duration
	onTick   func(d time.Duration)
}

// NewTicker creates a Ticker emitting at the given interval.
func NewTicker(interval time.Duration) *Ticker {
	return &Ticker{
		Source:   NewSource[Tick](),
		interval: interval,
	}
}

// OnTick sets a hook invoked after each tick with the time the tick's
// synchronous fan-out took. Set it before Run; it is read from the Run
// goroutine without locking.
func (t *Ticker) OnTick(fn func(d time.Duration)) {
	t.onTick = fn
}

// Run emits ticks until the context is cancelled. It blocks; run it in
// its own goroutine. All downstream signal work happens on this
// goroutine, which is what keeps the engine single-threaded.
func (t *Ticker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	var seq uint64
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			seq++
			dt := now.Sub(last)
			if seq == 1 {
				dt = 0
			}
			last = now
			start := time.Now()
			t.Emit(Tick{Seq: seq, Time: now, DT: dt})
			if t.onTick != nil {
				t.onTick(time.Since(start))
			}
		}
	}
}

// ManualClock is a Clock advanced explicitly. Used by tests and by any
// host that wants to drive the engine from its own scheduler.
type ManualClock struct {
	*Source[Tick]
	seq uint64
	now time.Time
}

// NewManualClock creates a ManualClock starting at the given time.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{
		Source: NewSource[Tick](),
		now:    start,
	}
}

// Advance moves the clock forward by dt and emits one tick.
func (c *ManualClock) Advance(dt time.Duration) Tick {
	c.seq++
	c.now = c.now.Add(dt)
	tick := Tick{Seq: c.seq, Time: c.now, DT: dt}
	if c.seq == 1 {
		tick.DT = 0
	}
	c.Emit(tick)
	return tick
}

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time {
	return c.now
}
