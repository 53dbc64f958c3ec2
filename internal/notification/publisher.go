package notification

import (
	"sync"
)

// Publisher holds the current state and fans changes out to subscribers.
// Publish is called once per reconciliation pass; subscribers only see changes.
type Publisher struct {
	mu          sync.Mutex
	current     State
	published   bool
	subscribers map[int]chan State
	nextID      int
}

// NewPublisher creates a publisher whose initial state is Disabled.
func NewPublisher() *Publisher {
	return &Publisher{
		current:     StateDisabled,
		subscribers: make(map[int]chan State),
	}
}

// Publish records the state. It never blocks: a slow subscriber only keeps the latest value.
func (p *Publisher) Publish(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.published && p.current == s {
		return
	}
	p.current = s
	p.published = true
	for _, ch := range p.subscribers {
		offerLatest(ch, s)
	}
}

// Current returns the last published state.
func (p *Publisher) Current() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Subscribe returns a channel receiving state changes, primed with the current
// state when one has been published. The cancel function closes the channel.
func (p *Publisher) Subscribe() (<-chan State, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan State, 1)
	if p.published {
		ch <- p.current
	}
	id := p.nextID
	p.nextID++
	p.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subscribers, id)
			close(ch)
		})
	}
}

// offerLatest replaces a pending value with s. Callers hold p.mu, so there is
// a single writer per channel.
func offerLatest(ch chan State, s State) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}
