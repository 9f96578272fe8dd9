package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var activityUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// activityFeed upgrades to a WebSocket and relays the operational
// activity feed to the client until either side closes the
// connection. It carries no workflow-engine data, only what this
// service itself did — infra bootstrap steps, job transitions, sweeper
// runs.
func (h *handlers) activityFeed(w http.ResponseWriter, r *http.Request) {
	activityUpgrader.CheckOrigin = func(r *http.Request) bool {
		return originAllowed(r.Header.Get("Origin"), h.d.Cfg.AllowedOrigins)
	}

	conn, err := activityUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.d.Logger.Warn("activity feed: upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	events, unsub := h.d.Hub.Subscribe(ctx)
	defer unsub()

	// A WebSocket connection only reports a dropped peer on write (or on
	// a read, which this endpoint never issues), so a small reader
	// goroutine is the one way to notice the client went away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

func originAllowed(origin string, allowed []string) bool {
	if origin == "" || len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
