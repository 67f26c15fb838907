// Package bus fans created messages out to every process that holds live
// connections. The local broker serves a single instance; redis and nats let
// several instances share delivery.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/prizm/config"
	"github.com/mohammad-safakhou/prizm/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const eventMessageCreated = "message.created"

// Handler receives a delivered message. ctx carries the publisher's trace context.
type Handler func(ctx context.Context, msg models.Message)

// Bus publishes messages and delivers them to subscribers.
type Bus interface {
	Publish(ctx context.Context, msg models.Message) error
	// Subscribe registers h until the returned cancel func is called or the bus is closed.
	Subscribe(ctx context.Context, h Handler) (cancel func(), err error)
	// Name identifies the broker in metrics.
	Name() string
	Close() error
}

// Envelope is the wire form of a published message.
type Envelope struct {
	EventID    string            `json:"event_id"`
	EventType  string            `json:"event_type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Headers    map[string]string `json:"headers,omitempty"`
	Data       models.Message    `json:"data"`
}

func newEnvelope(ctx context.Context, msg models.Message) Envelope {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventMessageCreated,
		OccurredAt: time.Now().UTC(),
		Headers:    carrier,
		Data:       msg,
	}
}

func encode(ctx context.Context, msg models.Message) ([]byte, error) {
	return json.Marshal(newEnvelope(ctx, msg))
}

// decode parses an envelope and restores its trace context.
func decode(data []byte) (context.Context, models.Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, models.Message{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventType != eventMessageCreated {
		return nil, models.Message{}, fmt.Errorf("unexpected event type %q", env.EventType)
	}
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.MapCarrier(env.Headers))
	return ctx, env.Data, nil
}

// New builds the broker selected by cfg.Broker.
func New(ctx context.Context, cfg config.DeliveryConfig, logger *zap.Logger) (Bus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Broker {
	case "", "local":
		return NewLocal(), nil
	case "redis":
		return NewRedis(ctx, cfg.Redis, cfg.Channel, logger)
	case "nats":
		return NewNATS(cfg.NATS.URL, cfg.Channel, logger)
	default:
		return nil, fmt.Errorf("unsupported broker %q", cfg.Broker)
	}
}
