package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/core/ports"
)

const defaultBuffer = 64

// Broker fans document events out to in-process subscribers. A subscriber
// whose buffer is full misses the event instead of blocking the publisher.
type Broker struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]chan domain.DocumentEvent
}

func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{logger: logger, subs: make(map[int]chan domain.DocumentEvent)}
}

// Subscribe returns a channel of events and a function that closes it.
func (b *Broker) Subscribe(buffer int) (<-chan domain.DocumentEvent, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan domain.DocumentEvent, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broker) Publish(_ context.Context, event domain.DocumentEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.Warn("event_dropped", "subscriber", id, "type", string(event.Type), "document", event.Document.ID)
		}
	}
	return nil
}

// Fanout publishes every event to each publisher and joins their errors.
type Fanout []ports.EventPublisher

func (f Fanout) Publish(ctx context.Context, event domain.DocumentEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
