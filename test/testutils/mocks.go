package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/stretchr/testify/mock"
)

// MockMessageBus provides a mock implementation of outbound.MessageBus that
// also records what was published
type MockMessageBus struct {
	mock.Mock
	published []PublishedMessage
	mu        sync.RWMutex
}

// PublishedMessage is a message captured by MockMessageBus
type PublishedMessage struct {
	Topic   string
	Message outbound.Message
}

// NewMockMessageBus creates a new mock message bus
func NewMockMessageBus() *MockMessageBus {
	return &MockMessageBus{}
}

// Publish publishes a message
func (m *MockMessageBus) Publish(ctx context.Context, topic string, message outbound.Message) error {
	args := m.Called(ctx, topic, message)

	if args.Error(0) == nil {
		m.mu.Lock()
		m.published = append(m.published, PublishedMessage{Topic: topic, Message: message})
		m.mu.Unlock()
	}

	return args.Error(0)
}

// Subscribe subscribes to a topic
func (m *MockMessageBus) Subscribe(ctx context.Context, topic string, handler outbound.MessageHandler) error {
	args := m.Called(ctx, topic, handler)
	return args.Error(0)
}

// Unsubscribe removes a subscription
func (m *MockMessageBus) Unsubscribe(ctx context.Context, topic string) error {
	args := m.Called(ctx, topic)
	return args.Error(0)
}

// Close closes the bus
func (m *MockMessageBus) Close() error {
	return nil
}

// Published returns all successfully published messages
func (m *MockMessageBus) Published() []PublishedMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]PublishedMessage, len(m.published))
	copy(out, m.published)
	return out
}

// Topics returns the topics of all published messages in order
func (m *MockMessageBus) Topics() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	topics := make([]string, len(m.published))
	for i, p := range m.published {
		topics[i] = p.Topic
	}
	return topics
}

// SetupStandardMockBehavior sets up common mock behaviors
func (m *MockMessageBus) SetupStandardMockBehavior() {
	// All operations succeed by default
	m.On("Publish", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(nil)

	m.On("Subscribe", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(nil)
}

// MockCacheRepository provides a mock implementation of outbound.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

// Get retrieves a value
func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

// Set stores a value
func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// Delete removes a value
func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Exists checks a key
func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
