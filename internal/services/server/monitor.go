package server

import (
	"fmt"
	"strings"
	"sync"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/clock"
	"github.com/LeonardoBeccarini/greenhouse_project/internal/greenhouse"
	"github.com/LeonardoBeccarini/greenhouse_project/internal/metrics"
)

// LineWriter sends one protocol line to a client.
type LineWriter interface {
	WriteLine(line string) error
}

// Monitor pushes a sensor dump to every subscribed writer on each clock
// tick. It is registered with the clock only while it has subscribers.
type Monitor struct {
	clock  *clock.Clock
	lookup func(id int) (*greenhouse.GreenHouse, bool)

	subs sync.Map // LineWriter -> greenhouse id

	mu       sync.Mutex
	active   int
	clockSub clock.SubscriptionID
}

func NewMonitor(c *clock.Clock, lookup func(id int) (*greenhouse.GreenHouse, bool)) *Monitor {
	return &Monitor{clock: c, lookup: lookup}
}

// Subscribe points w at greenhouse ghID, replacing any previous target.
func (m *Monitor) Subscribe(ghID int, w LineWriter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, loaded := m.subs.Swap(w, ghID); loaded {
		return
	}
	m.active++
	metrics.MonitorSubscribers.Set(float64(m.active))
	if m.active == 1 {
		m.clockSub = m.clock.Subscribe(m)
	}
}

// Unsubscribe reports whether w was subscribed.
func (m *Monitor) Unsubscribe(w LineWriter) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, loaded := m.subs.LoadAndDelete(w); !loaded {
		return false
	}
	m.active--
	metrics.MonitorSubscribers.Set(float64(m.active))
	if m.active == 0 {
		m.clock.Unsubscribe(m.clockSub)
	}
	return true
}

func (m *Monitor) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Tick writes one dump line per subscriber. Writers that fail are dropped
// without retry.
func (m *Monitor) Tick() {
	m.subs.Range(func(key, value any) bool {
		w := key.(LineWriter)
		gh, ok := m.lookup(value.(int))
		if !ok {
			return true
		}
		if err := w.WriteLine(dumpLine(gh)); err != nil {
			metrics.MonitorPushesTotal.WithLabelValues("dropped").Inc()
			m.Unsubscribe(w)
			return true
		}
		metrics.MonitorPushesTotal.WithLabelValues("ok").Inc()
		return true
	})
}

// Close drops every subscriber and leaves the clock.
func (m *Monitor) Close() {
	m.subs.Range(func(key, _ any) bool {
		m.Unsubscribe(key.(LineWriter))
		return true
	})
}

func dumpLine(gh *greenhouse.GreenHouse) string {
	dump := gh.SensorDump()
	if len(dump) == 0 {
		return fmt.Sprintf("%s: no sensors", gh)
	}
	return fmt.Sprintf("%s: %s", gh, strings.Join(dump, " | "))
}

// broadcaster delivers server-wide notices to sessions that asked for them.
type broadcaster struct {
	subs sync.Map // LineWriter -> struct{}
}

func (b *broadcaster) add(w LineWriter)    { b.subs.Store(w, struct{}{}) }
func (b *broadcaster) remove(w LineWriter) { b.subs.Delete(w) }

func (b *broadcaster) send(line string) {
	b.subs.Range(func(key, _ any) bool {
		w := key.(LineWriter)
		if err := w.WriteLine(line); err != nil {
			b.subs.Delete(w)
		}
		return true
	})
}
