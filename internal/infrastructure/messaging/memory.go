package messaging

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"go.uber.org/zap"
)

// MemoryBus delivers messages synchronously to in-process subscribers.
// Topics match with NATS subject wildcards: "*" for one token, ">" for the rest.
type MemoryBus struct {
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[string]outbound.MessageHandler
	closed   bool
}

// NewMemoryBus creates an in-process message bus
func NewMemoryBus(logger *zap.Logger) *MemoryBus {
	return &MemoryBus{
		logger:   logger.Named("memory-bus"),
		handlers: make(map[string]outbound.MessageHandler),
	}
}

var _ outbound.MessageBus = (*MemoryBus)(nil)

// Publish hands the message to every matching subscriber. Handler failures
// are logged and joined into the returned error.
func (b *MemoryBus) Publish(ctx context.Context, topic string, message outbound.Message) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	var matched []outbound.MessageHandler
	for pattern, handler := range b.handlers {
		if SubjectMatches(pattern, topic) {
			matched = append(matched, handler)
		}
	}
	b.mu.RUnlock()

	var errs []error
	for _, handler := range matched {
		if err := handler(ctx, message); err != nil {
			b.logger.Warn("Message handler failed", zap.String("topic", topic), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler, replacing any previous one for the pattern
func (b *MemoryBus) Subscribe(ctx context.Context, topic string, handler outbound.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	b.handlers[topic] = handler
	return nil
}

// Unsubscribe removes the handler for a pattern
func (b *MemoryBus) Unsubscribe(ctx context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.handlers, topic)
	return nil
}

// Close drops all handlers and rejects further use
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.handlers = make(map[string]outbound.MessageHandler)
	return nil
}

// SubjectMatches reports whether a dot-separated subject matches a pattern
func SubjectMatches(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, token := range pt {
		if token == ">" {
			return len(st) > i
		}
		if i >= len(st) {
			return false
		}
		if token != "*" && token != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}
