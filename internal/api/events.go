package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/adiwira/gudang/internal/events"
)

// EventsHandler streams table-change events over server-sent events so
// clients know when to refetch.
type EventsHandler struct {
	Bus *events.Bus
}

type changeEvent struct {
	Tables []string `json:"tables"`
}

// Stream handles GET /api/events. The connection stays open until the
// client disconnects; each coalesced batch of changes becomes one
// "change" event naming the affected tables.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before the headers go out so a change arriving right
	// after the client connects is never missed.
	sub := h.Bus.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		tables, err := sub.Wait(r.Context())
		if err != nil {
			if r.Context().Err() == context.Canceled {
				return
			}
			slog.Debug("event stream closed", "error", err)
			return
		}

		payload, err := json.Marshal(changeEvent{Tables: tables})
		if err != nil {
			slog.Error("failed to encode change event", "error", err)
			return
		}
		if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	}
}
