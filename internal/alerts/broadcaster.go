package alerts

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/mr1hm/earthpulse/internal/models"
)

// streamBuffer bounds how many alerts a subscriber may fall behind by.
const streamBuffer = 100

// Broadcaster fans alerts out to live notification streams.
type Broadcaster struct {
	streams map[uint64]chan models.Alert
	nextID  atomic.Uint64
	dropped atomic.Uint64
	closed  bool
	mu      sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		streams: make(map[uint64]chan models.Alert),
	}
}

// Subscribe registers a stream. The channel is closed by Unsubscribe or Close.
func (b *Broadcaster) Subscribe() (uint64, <-chan models.Alert) {
	id := b.nextID.Add(1)
	ch := make(chan models.Alert, streamBuffer)

	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.streams[id] = ch
	}
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.streams[id]; ok {
		close(ch)
		delete(b.streams, id)
	}
	b.mu.Unlock()
}

// Notify delivers a to every stream without blocking. Streams whose buffer is
// full miss the alert.
func (b *Broadcaster) Notify(_ context.Context, a models.Alert) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.streams {
		select {
		case ch <- a:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

func (b *Broadcaster) StreamCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.streams)
}

// Dropped reports how many deliveries were skipped for slow streams.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Close ends every stream. Later subscribers get an already closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, ch := range b.streams {
		close(ch)
		delete(b.streams, id)
	}
}
