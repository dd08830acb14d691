package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const defaultBuffer = 32

// Hub is the in-process fan-out every backend delivers into.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan ChangeEvent
	next   uint64
	buffer int
	closed bool
	log    *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[uint64]chan ChangeEvent),
		buffer: defaultBuffer,
		log:    logger,
	}
}

// Publish never blocks; a subscriber whose buffer is full misses the event.
func (h *Hub) Publish(_ context.Context, ev ChangeEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.log.Debug("dropping change event for slow subscriber",
				zap.Uint64("subscriber", id),
				zap.String("group_id", ev.GroupID),
			)
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context) (<-chan ChangeEvent, func()) {
	ch := make(chan ChangeEvent, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() { h.remove(id) })
	}
	stop := context.AfterFunc(ctx, release)

	return ch, func() {
		stop()
		release()
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription; later Subscribe calls get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
