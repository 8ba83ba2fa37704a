package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Envelope target kinds.
const (
	TargetUser         = "user"
	TargetConversation = "conversation"
	TargetAll          = "all"
	TargetLeave        = "leave"
)

// Target names the recipients of an envelope.
type Target struct {
	Kind           string `json:"kind"`
	UserID         UserID `json:"user_id,omitempty"`
	ConversationID uint   `json:"conversation_id,omitempty"`
}

// Envelope carries an event between API nodes.
type Envelope struct {
	Source  string          `json:"source"`
	Target  Target          `json:"target"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

// EventBus moves envelopes between nodes.
type EventBus interface {
	Publish(ctx context.Context, envelope Envelope) error
	// Subscribe blocks, invoking handler for every envelope, until ctx is done.
	Subscribe(ctx context.Context, handler func(Envelope)) error
}

// RedisBus is an EventBus over Redis pub/sub.
type RedisBus struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewRedisBus builds a bus publishing on "<channelBase>:events".
func NewRedisBus(client *redis.Client, channelBase string, logger zerolog.Logger) *RedisBus {
	return &RedisBus{
		client:  client,
		channel: channelBase + ":events",
		logger:  logger.With().Str("component", "redis_bus").Logger(),
	}
}

func (b *RedisBus) Publish(ctx context.Context, envelope Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, handler func(Envelope)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = pubsub.Close() }()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return context.Canceled
			}
			return err
		}

		var envelope Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			b.logger.Warn().Err(err).Msg("invalid envelope on redis bus")
			continue
		}
		handler(envelope)
	}
}

// NATSBus is an EventBus over a NATS subject. Every node subscribes without a
// queue group so that each node sees every envelope.
type NATSBus struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSBus builds a bus publishing on "<channelBase>.events" with ':' mapped to '.'.
func NewNATSBus(conn *nats.Conn, channelBase string, logger zerolog.Logger) *NATSBus {
	return &NATSBus{
		conn:    conn,
		subject: strings.ReplaceAll(channelBase, ":", ".") + ".events",
		logger:  logger.With().Str("component", "nats_bus").Logger(),
	}
}

func (b *NATSBus) Publish(_ context.Context, envelope Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return b.conn.Publish(b.subject, payload)
}

func (b *NATSBus) Subscribe(ctx context.Context, handler func(Envelope)) error {
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		var envelope Envelope
		if err := json.Unmarshal(msg.Data, &envelope); err != nil {
			b.logger.Warn().Err(err).Msg("invalid envelope on nats bus")
			return
		}
		handler(envelope)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		b.logger.Warn().Err(err).Msg("failed to drain nats subscription")
	}
	return context.Canceled
}
