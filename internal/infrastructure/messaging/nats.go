// Package messaging provides outbound.MessageBus implementations: a NATS
// client for deployments and an in-process bus for tests and single binaries
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Header names carried on every published NATS message
const (
	HeaderMessageID = "Nats-Msg-Id"
	HeaderType      = "Event-Type"
	HeaderTimestamp = "Event-Timestamp"
	metadataPrefix  = "Meta-"
)

// ErrBusClosed is returned by operations on a closed bus
var ErrBusClosed = errors.New("message bus closed")

// NATSBus publishes and subscribes through a NATS connection
type NATSBus struct {
	conn   *nats.Conn
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NewNATSBus connects to the configured NATS server
func NewNATSBus(cfg *config.MessagingConfig, logger *zap.Logger) (*NATSBus, error) {
	log := logger.Named("nats")

	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("mealplan"),
		nats.Timeout(cfg.ConnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}

	log.Info("NATS message bus connected", zap.String("url", conn.ConnectedUrl()))

	return &NATSBus{
		conn:   conn,
		logger: log,
		subs:   make(map[string]*nats.Subscription),
	}, nil
}

var _ outbound.MessageBus = (*NATSBus)(nil)

// Publish sends a message on the subject named by topic
func (b *NATSBus) Publish(ctx context.Context, topic string, message outbound.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.conn.IsClosed() {
		return ErrBusClosed
	}

	if err := b.conn.PublishMsg(toNATSMsg(topic, message)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers a handler for a subject. Handler errors are logged.
func (b *NATSBus) Subscribe(ctx context.Context, topic string, handler outbound.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subs[topic]; exists {
		return fmt.Errorf("already subscribed to %s", topic)
	}

	sub, err := b.conn.Subscribe(topic, func(m *nats.Msg) {
		msg := fromNATSMsg(m)
		if err := handler(context.Background(), msg); err != nil {
			b.logger.Error("Message handler failed",
				zap.String("subject", m.Subject),
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	b.subs[topic] = sub
	return nil
}

// Unsubscribe removes the subscription for a subject
func (b *NATSBus) Unsubscribe(ctx context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, exists := b.subs[topic]
	if !exists {
		return nil
	}
	delete(b.subs, topic)
	return sub.Unsubscribe()
}

// Ping flushes the connection to verify the server round trip
func (b *NATSBus) Ping(ctx context.Context) error {
	return b.conn.FlushWithContext(ctx)
}

// Close drains subscriptions and closes the connection
func (b *NATSBus) Close() error {
	if b.conn.IsClosed() {
		return nil
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return err
	}
	return nil
}

func toNATSMsg(topic string, message outbound.Message) *nats.Msg {
	header := nats.Header{}
	if message.ID != "" {
		header.Set(HeaderMessageID, message.ID)
	}
	if message.Type != "" {
		header.Set(HeaderType, message.Type)
	}
	if !message.Timestamp.IsZero() {
		header.Set(HeaderTimestamp, message.Timestamp.UTC().Format(time.RFC3339Nano))
	}
	for k, v := range message.Metadata {
		header.Set(metadataPrefix+k, v)
	}

	return &nats.Msg{
		Subject: topic,
		Header:  header,
		Data:    message.Payload,
	}
}

func fromNATSMsg(m *nats.Msg) outbound.Message {
	msg := outbound.Message{
		ID:      m.Header.Get(HeaderMessageID),
		Type:    m.Header.Get(HeaderType),
		Payload: m.Data,
	}

	if ts := m.Header.Get(HeaderTimestamp); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			msg.Timestamp = parsed
		}
	}

	for k, values := range m.Header {
		if !strings.HasPrefix(k, metadataPrefix) || len(values) == 0 {
			continue
		}
		if msg.Metadata == nil {
			msg.Metadata = make(map[string]string)
		}
		msg.Metadata[strings.TrimPrefix(k, metadataPrefix)] = values[0]
	}

	return msg
}
