package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/mohammad-safakhou/prizm/models"
)

var ErrClosed = errors.New("bus closed")

// Local delivers messages in-process, synchronously, to every subscriber.
type Local struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]Handler
	closed   bool
}

func NewLocal() *Local {
	return &Local{handlers: make(map[int]Handler)}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Publish(ctx context.Context, msg models.Message) error {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return ErrClosed
	}
	hs := make([]Handler, 0, len(l.handlers))
	for _, h := range l.handlers {
		hs = append(hs, h)
	}
	l.mu.RUnlock()

	for _, h := range hs {
		h(ctx, msg)
	}
	return nil
}

func (l *Local) Subscribe(_ context.Context, h Handler) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	id := l.next
	l.next++
	l.handlers[id] = h
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.handlers, id)
			l.mu.Unlock()
		})
	}, nil
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.handlers = map[int]Handler{}
	return nil
}
