// ============================================================================
// FILE: internal/infrastructure/services/event_bus.go
// PURPOSE: In-process event bus over watermill's gochannel transport
// ============================================================================
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/events"
)

// WatermillBus implements common.EventBus over an in-process gochannel
// pub/sub. Publishers persist their own state before emitting; work that a
// subscriber creates in response (such as checkback jobs) is not created
// when a message is dropped.
type WatermillBus struct {
	pubsub *gochannel.GoChannel
	logger common.Logger

	mu      sync.Mutex
	cancels []context.CancelFunc
}

// NewWatermillBus creates the bus.
func NewWatermillBus(logger common.Logger) *WatermillBus {
	return &WatermillBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, watermill.NopLogger{}),
		logger: logger,
	}
}

func (b *WatermillBus) Publish(ctx context.Context, event common.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", event.Type(), err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(event.Type(), msg); err != nil {
		return fmt.Errorf("publishing event %s: %w", event.Type(), err)
	}
	return nil
}

func (b *WatermillBus) Subscribe(eventType string, handler common.EventHandler) error {
	ctx, cancel := context.WithCancel(context.Background())
	b.mu.Lock()
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	messages, err := b.pubsub.Subscribe(ctx, eventType)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribing to %s: %w", eventType, err)
	}

	go func() {
		for msg := range messages {
			event, err := decodeEvent(eventType, msg.Payload)
			if err != nil {
				b.logger.Error("dropping undecodable event", "type", eventType, "error", err)
				msg.Ack()
				continue
			}
			if err := handler(msg.Context(), event); err != nil {
				b.logger.Error("event handler failed", "type", eventType, "error", err)
				// Nack redelivers; the handler is idempotent by contract.
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}()
	return nil
}

func (b *WatermillBus) Close() error {
	b.mu.Lock()
	for _, cancel := range b.cancels {
		cancel()
	}
	b.mu.Unlock()
	return b.pubsub.Close()
}

func decodeEvent(eventType string, payload []byte) (common.Event, error) {
	switch eventType {
	case events.TypePublished:
		var e events.Published
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case events.TypeSnapshotRecorded:
		var e events.SnapshotRecorded
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}
