package hybrid

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus for tests, examples, and single-process
// deployments. Each subscription drains its own buffered channel on a
// dedicated goroutine, so handlers see messages one at a time.
type MemoryBus struct {
	mu   sync.Mutex
	seq  int64
	subs map[int64]chan Message
}

var _ Bus = (*MemoryBus)(nil)

// NewMemoryBus returns an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[int64]chan Message)}
}

// Publish implements Bus. Delivery is asynchronous; a subscriber that
// cannot keep up drops the oldest pending messages rather than blocking
// the publisher.
func (b *MemoryBus) Publish(_ context.Context, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- msg:
			default:
			}
		}
	}
	return nil
}

// Subscribe implements Bus.
func (b *MemoryBus) Subscribe(_ context.Context, handler func(Message)) (func(), error) {
	ch := make(chan Message, 128)

	b.mu.Lock()
	b.seq++
	id := b.seq
	b.subs[id] = ch
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ch {
			handler(msg)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
			<-done
		})
	}
	return cancel, nil
}
