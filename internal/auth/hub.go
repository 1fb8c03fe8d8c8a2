package auth

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// SessionTopic carries every session Event.
const SessionTopic = "auth.session"

// Hub is the single in-process fan-out point for session events.
type Hub struct {
	bus *gochannel.GoChannel
}

func NewHub() *Hub {
	return &Hub{bus: gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 16},
		watermill.NewStdLogger(false, false),
	)}
}

// Publish sends ev to current subscribers. Events with no subscriber are dropped.
func (h *Hub) Publish(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.bus.Publish(SessionTopic, message.NewMessage(watermill.NewUUID(), data))
}

// Subscribe delivers events to fn on a dedicated goroutine, in publish order,
// until the returned function is called or ctx ends.
func (h *Hub) Subscribe(ctx context.Context, fn func(Event)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	messages, err := h.bus.Subscribe(ctx, SessionTopic)
	if err != nil {
		cancel()
		return nil, err
	}

	go func() {
		for msg := range messages {
			var ev Event
			err := json.Unmarshal(msg.Payload, &ev)
			msg.Ack()
			if err != nil {
				continue
			}
			fn(ev)
		}
	}()
	return cancel, nil
}

func (h *Hub) Close() error {
	return h.bus.Close()
}
