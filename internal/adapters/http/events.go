package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	eventsPath      = "/api/events"
	eventBuffer     = 32
	eventsKeepAlive = 15 * time.Second
)

// streamEvents relays document events as server-sent events until the client
// goes away. Document text is left out of the payload.
func (rt *Router) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming is not supported", nil)
		return
	}
	events, unsubscribe := rt.events.Subscribe(eventBuffer)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(eventsKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			event.Document.Text = ""
			payload, err := json.Marshal(event)
			if err != nil {
				rt.logger.Warn("event_encode_failed", "type", event.Type, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}
