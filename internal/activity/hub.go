package activity

import (
	"context"
	"encoding/json"
	"log"
)

// Hub is the single operational activity feed. Components call Publish
// as they work; GET /admin/activity callers call Subscribe to follow
// along live.
type Hub struct {
	bus Bus
}

// NewHub wraps bus as an activity feed.
func NewHub(bus Bus) *Hub {
	return &Hub{bus: bus}
}

// Publish sends ev to every current subscriber.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	return h.bus.Publish(ctx, channel, ev)
}

// Subscribe returns a channel of decoded events and a cleanup function
// the caller must invoke when it stops reading. Malformed payloads are
// logged and dropped rather than surfaced as errors, since one bad
// message on the feed should never take a subscriber down.
func (h *Hub) Subscribe(ctx context.Context) (<-chan Event, func()) {
	raw, unsub := h.bus.Subscribe(ctx, channel)
	out := make(chan Event, 100)

	go func() {
		defer close(out)
		for msg := range raw {
			var ev Event
			if err := json.Unmarshal(msg, &ev); err != nil {
				log.Printf("activity: dropping malformed event: %v", err)
				continue
			}
			select {
			case out <- ev:
			default:
				log.Printf("activity: dropping event, subscriber too slow")
			}
		}
	}()

	return out, unsub
}

// Close releases the underlying transport.
func (h *Hub) Close() error {
	return h.bus.Close()
}
