package greenhouse

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/clock"
)

// Registry is the server-wide set of greenhouses. Readers walk an immutable
// slice; writers swap in a new one under mu.
type Registry struct {
	clock *clock.Clock
	opts  []Option

	mu   sync.Mutex
	list atomic.Pointer[[]*GreenHouse]
	subs map[int]clock.SubscriptionID
}

// NewRegistry builds an empty registry. opts apply to every greenhouse it
// creates.
func NewRegistry(c *clock.Clock, opts ...Option) *Registry {
	r := &Registry{clock: c, opts: opts, subs: make(map[int]clock.SubscriptionID)}
	empty := []*GreenHouse{}
	r.list.Store(&empty)
	return r
}

// Create adds a greenhouse with id max+1, or 0 when empty, and subscribes it
// to the clock.
func (r *Registry) Create() *GreenHouse {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := 0
	cur := *r.list.Load()
	if n := len(cur); n > 0 {
		id = cur[n-1].ID() + 1
	}
	g := New(id, r.opts...)
	r.insertLocked(g)
	return g
}

// Add inserts an already built greenhouse, typically a restored one.
func (r *Registry) Add(g *GreenHouse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range *r.list.Load() {
		if cur.ID() == g.ID() {
			return fmt.Errorf("%w: %d", ErrDuplicateID, g.ID())
		}
	}
	r.insertLocked(g)
	return nil
}

func (r *Registry) insertLocked(g *GreenHouse) {
	cur := *r.list.Load()
	next := make([]*GreenHouse, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, g)
	sort.Slice(next, func(i, j int) bool { return next[i].ID() < next[j].ID() })
	r.list.Store(&next)
	if r.clock != nil {
		r.subs[g.ID()] = r.clock.Subscribe(g)
	}
}

func (r *Registry) Get(id int) (*GreenHouse, bool) {
	for _, g := range *r.list.Load() {
		if g.ID() == id {
			return g, true
		}
	}
	return nil, false
}

// List returns the greenhouses ordered by id. The slice must not be modified.
func (r *Registry) List() []*GreenHouse {
	return *r.list.Load()
}

func (r *Registry) Len() int {
	return len(*r.list.Load())
}

// Close unsubscribes every greenhouse from the clock.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sub := range r.subs {
		r.clock.Unsubscribe(sub)
		delete(r.subs, id)
	}
}
