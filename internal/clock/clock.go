package clock

import (
	"errors"
	"log"
	"sync"
	"time"
)

var (
	ErrInvalidJump = errors.New("clock: jump must be 1 or 2")
	ErrNotRunning  = errors.New("clock: not running")
)

// ladder holds the tick periods, in tick units, from slowest to fastest.
var ladder = [...]int{10, 5, 1}

// Subscriber receives one call per tick.
type Subscriber interface {
	Tick()
}

// SubscriberFunc adapts a plain function to Subscriber.
type SubscriberFunc func()

func (f SubscriberFunc) Tick() { f() }

type SubscriptionID uint64

type subscription struct {
	id  SubscriptionID
	sub Subscriber
}

// Clock drives the simulation. Subscribers are called synchronously, in
// subscription order, and ticks never overlap: a slow subscriber delays the
// ones after it.
type Clock struct {
	unit time.Duration

	mu      sync.Mutex
	subs    []subscription
	nextID  SubscriptionID
	pos     int
	running bool
	ticker  *time.Ticker
	stop    chan struct{}

	tickMu sync.Mutex
}

// New builds a stopped clock. unit is the duration of one rate step, so the
// ladder runs at 10, 5 and 1 units per tick.
func New(unit time.Duration) *Clock {
	if unit <= 0 {
		unit = time.Second
	}
	return &Clock{unit: unit}
}

// Start launches the periodic timer at the slowest rate, replacing any
// running timer.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.pos = 0
	c.ticker = time.NewTicker(c.intervalLocked())
	c.stop = make(chan struct{})
	c.running = true
	go c.loop(c.ticker, c.stop)
	log.Printf("clock: started interval=%s", c.intervalLocked())
}

// Stop cancels the timer. Safe to call from inside a tick.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Clock) stopLocked() {
	if !c.running {
		return
	}
	c.ticker.Stop()
	close(c.stop)
	c.ticker = nil
	c.stop = nil
	c.running = false
}

func (c *Clock) loop(t *time.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			// a tick buffered before Stop must not fire after it
			select {
			case <-stop:
				return
			default:
			}
			c.TickNow()
		}
	}
}

// Subscribe appends s to the tick list.
func (c *Clock) Subscribe(s Subscriber) SubscriptionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	next := make([]subscription, len(c.subs), len(c.subs)+1)
	copy(next, c.subs)
	c.subs = append(next, subscription{id: c.nextID, sub: s})
	return c.nextID
}

// Unsubscribe removes the subscription; it reports whether it existed.
func (c *Clock) Unsubscribe(id SubscriptionID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.subs {
		if s.id != id {
			continue
		}
		next := make([]subscription, 0, len(c.subs)-1)
		next = append(next, c.subs[:i]...)
		c.subs = append(next, c.subs[i+1:]...)
		return true
	}
	return false
}

// Subscribers returns the number of registered subscribers.
func (c *Clock) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// TickNow runs one tick on the calling goroutine.
func (c *Clock) TickNow() {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	c.mu.Lock()
	subs := c.subs
	c.mu.Unlock()

	for _, s := range subs {
		s.sub.Tick()
	}
}

// SpeedUp moves jump steps towards the fastest rate.
func (c *Clock) SpeedUp(jump int) error {
	if jump != 1 && jump != 2 {
		return ErrInvalidJump
	}
	return c.shift(jump)
}

// SlowDown moves jump steps towards the slowest rate.
func (c *Clock) SlowDown(jump int) error {
	if jump != 1 && jump != 2 {
		return ErrInvalidJump
	}
	return c.shift(-jump)
}

func (c *Clock) shift(delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return ErrNotRunning
	}
	pos := c.pos + delta
	if pos < 0 {
		pos = 0
	}
	if pos > len(ladder)-1 {
		pos = len(ladder) - 1
	}
	if pos == c.pos {
		return nil
	}
	c.pos = pos
	c.ticker.Reset(c.intervalLocked())
	log.Printf("clock: rate=%d interval=%s", ladder[c.pos], c.intervalLocked())
	return nil
}

// Rate is the current number of tick units between ticks.
func (c *Clock) Rate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ladder[c.pos]
}

// Interval is the current wall-clock period between ticks.
func (c *Clock) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intervalLocked()
}

func (c *Clock) intervalLocked() time.Duration {
	return time.Duration(ladder[c.pos]) * c.unit
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
