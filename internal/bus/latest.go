package bus

import "sync"

// Latest holds a value and replays it to subscribers: a new subscriber receives
// the current value immediately, then every later one. Each subscriber has a
// one-slot mailbox that is overwritten, so a slow reader skips intermediate
// values but always ends on the newest. Set never blocks.
type Latest[T any] struct {
	mu     sync.Mutex
	val    T
	subs   map[int]chan T
	next   int
	closed bool
}

// NewLatest creates a cell holding initial.
func NewLatest[T any](initial T) *Latest[T] {
	return &Latest[T]{val: initial, subs: make(map[int]chan T)}
}

// Get returns the current value.
func (l *Latest[T]) Get() T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.val
}

// Set stores v and offers it to every subscriber.
func (l *Latest[T]) Set(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.val = v
	for _, ch := range l.subs {
		offer(ch, v)
	}
}

// Update applies fn to the current value under the cell's lock and publishes the result.
func (l *Latest[T]) Update(fn func(T) T) T {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return l.val
	}
	l.val = fn(l.val)
	for _, ch := range l.subs {
		offer(ch, l.val)
	}
	return l.val
}

// Subscribe returns a channel preloaded with the current value and a function
// that detaches and closes it.
func (l *Latest[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	ch <- l.val
	id := l.next
	l.next++
	l.subs[id] = ch
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			if c, ok := l.subs[id]; ok {
				delete(l.subs, id)
				close(c)
			}
			l.mu.Unlock()
		})
	}
}

// Close closes every subscriber channel. The value remains readable.
func (l *Latest[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for id, ch := range l.subs {
		close(ch)
		delete(l.subs, id)
	}
}

// offer replaces whatever is waiting in the one-slot mailbox with v.
func offer[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// Flag is a boolean Latest that only publishes transitions.
type Flag struct {
	cell *Latest[bool]
	mu   sync.Mutex
}

// NewFlag creates a flag holding initial.
func NewFlag(initial bool) *Flag {
	return &Flag{cell: NewLatest(initial)}
}

// Set stores v and reports whether the value changed. Repeats are not published.
func (f *Flag) Set(v bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cell.Get() == v {
		return false
	}
	f.cell.Set(v)
	return true
}

// Get returns the current value.
func (f *Flag) Get() bool { return f.cell.Get() }

// Subscribe behaves like Latest.Subscribe.
func (f *Flag) Subscribe() (<-chan bool, func()) { return f.cell.Subscribe() }

// Close closes every subscriber channel.
func (f *Flag) Close() { f.cell.Close() }
