package greenhouse

import (
	"sync"
	"sync/atomic"
)

// Handle identifies one registration on a Publisher.
type Handle uint64

type handler[E any] struct {
	h  Handle
	fn func(E)
}

// Publisher fans an event out to registered handlers. The handler list is
// copy-on-write so Notify never holds the registration lock.
type Publisher[E any] struct {
	mu   sync.Mutex
	next Handle
	list atomic.Pointer[[]handler[E]]
}

func (p *Publisher[E]) Subscribe(fn func(E)) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.next++
	var cur []handler[E]
	if l := p.list.Load(); l != nil {
		cur = *l
	}
	next := make([]handler[E], len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, handler[E]{h: p.next, fn: fn})
	p.list.Store(&next)
	return p.next
}

func (p *Publisher[E]) Unsubscribe(h Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	l := p.list.Load()
	if l == nil {
		return false
	}
	cur := *l
	for i := range cur {
		if cur[i].h != h {
			continue
		}
		next := make([]handler[E], 0, len(cur)-1)
		next = append(next, cur[:i]...)
		next = append(next, cur[i+1:]...)
		p.list.Store(&next)
		return true
	}
	return false
}

func (p *Publisher[E]) Notify(e E) {
	l := p.list.Load()
	if l == nil {
		return
	}
	for _, s := range *l {
		s.fn(e)
	}
}

func (p *Publisher[E]) Len() int {
	if l := p.list.Load(); l != nil {
		return len(*l)
	}
	return 0
}
