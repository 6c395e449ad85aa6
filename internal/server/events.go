package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mesh-intelligence/logbook/internal/bus"
)

// keepAlive is the interval between comment lines on an idle stream.
const keepAlive = 30 * time.Second

type changeEvent struct {
	Key    string `json:"key"`
	Source string `json:"source"`
	At     string `json:"at"`
}

// handleEvents streams one "change" event per bus notification until the
// client goes away. Events only say that a key changed; clients re-fetch.
func handleEvents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
			return
		}

		events := make(chan bus.Event, 16)
		sub := deps.Bus.Subscribe(func(ev bus.Event) {
			select {
			case events <- ev:
			default:
				// Client is behind; it re-fetches on the next event anyway.
			}
		})
		defer sub.Unsubscribe()

		if deps.Metrics != nil {
			deps.Metrics.EventStreams.Inc()
			defer deps.Metrics.EventStreams.Dec()
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()
			case ev := <-events:
				payload, err := json.Marshal(changeEvent{
					Key:    ev.Key,
					Source: ev.Source.String(),
					At:     ev.At.UTC().Format(time.RFC3339Nano),
				})
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: change\ndata: %s\n\n", payload)
				flusher.Flush()
			}
		}
	}
}
