package events

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrClosed is returned when subscribing to a closed Notifier.
var ErrClosed = errors.New("notifier closed")

// Listener receives published events. Listeners run synchronously on the
// publishing goroutine and should not block.
type Listener func(Event)

// Notifier fans events out to subscribed listeners in subscription order.
// A panicking listener is logged and does not affect the others.
type Notifier struct {
	logger *zap.Logger

	mu        sync.RWMutex
	closed    bool
	nextID    uint64
	listeners map[uint64]Listener
	closers   map[uint64]func()

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewNotifier returns an open notifier. A nil logger is replaced by a no-op logger.
func NewNotifier(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		logger:    logger,
		listeners: make(map[uint64]Listener),
		closers:   make(map[uint64]func()),
	}
}

// Subscribe registers l and returns a function that removes it again.
func (n *Notifier) Subscribe(l Listener) (func(), error) {
	return n.subscribe(l, nil)
}

func (n *Notifier) subscribe(l Listener, onDetach func()) (func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, ErrClosed
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = l
	if onDetach != nil {
		n.closers[id] = onDetach
	}
	var once sync.Once
	return func() { once.Do(func() { n.unsubscribe(id) }) }, nil
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	closer := n.closers[id]
	delete(n.listeners, id)
	delete(n.closers, id)
	n.mu.Unlock()
	if closer != nil {
		closer()
	}
}

// Channel subscribes a buffered channel of the given size. Events that do
// not fit are dropped and counted. The channel is closed on unsubscribe or
// when the notifier closes.
func (n *Notifier) Channel(size int) (<-chan Event, func(), error) {
	if size < 1 {
		size = 1
	}
	var mu sync.Mutex
	done := false
	ch := make(chan Event, size)
	send := func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if done {
			return
		}
		select {
		case ch <- e:
		default:
			n.dropped.Add(1)
		}
	}
	detach := func() {
		mu.Lock()
		defer mu.Unlock()
		if !done {
			done = true
			close(ch)
		}
	}
	unsubscribe, err := n.subscribe(send, detach)
	if err != nil {
		return nil, nil, err
	}
	return ch, unsubscribe, nil
}

// Publish delivers e to every current listener. Publishing on a closed
// notifier is a no-op.
func (n *Notifier) Publish(e Event) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	ids := make([]uint64, 0, len(n.listeners))
	for id := range n.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	targets := make([]Listener, len(ids))
	for i, id := range ids {
		targets[i] = n.listeners[id]
	}
	n.mu.RUnlock()

	n.published.Add(1)
	for _, l := range targets {
		n.deliver(l, e)
	}
}

func (n *Notifier) deliver(l Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("event listener panicked",
				zap.Stringer("event", e),
				zap.Any("panic", r),
			)
		}
	}()
	l(e)
}

// Close detaches every listener and closes channel subscriptions. It is idempotent.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	closers := make([]func(), 0, len(n.closers))
	for _, c := range n.closers {
		closers = append(closers, c)
	}
	clear(n.listeners)
	clear(n.closers)
	n.mu.Unlock()

	for _, c := range closers {
		c()
	}
}

// Stats reports how many events were published and how many were dropped
// by full channel subscriptions.
func (n *Notifier) Stats() (published, dropped uint64) {
	return n.published.Load(), n.dropped.Load()
}
