package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openshelf/booksapi/internal/booksapi/events"
	"github.com/openshelf/booksapi/pkg/httpx"
	"github.com/openshelf/booksapi/pkg/slogx"
)

type UpdatesHandler struct {
	Bus *events.Bus
}

// ServeHTTP streams catalogue change events over server-sent events
//
//	@Summary		Get update stream from channel
//	@Description	Server-sent events stream of change events published on the named channel.
//	@Description	Only events published while the client is connected are delivered.
//	@Tags			SSE
//	@Produce		text/event-stream
//	@Param			channel	path	string	true	"Channel name, e.g. books"
//	@Success		200		"SSE stream"
//	@Router			/sse/updates/{channel} [get].
func (h *UpdatesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	channel := r.PathValue("channel")

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	// Subscribe before the headers go out so that a client that has seen
	// the response start cannot miss events published right after.
	sub := h.Bus.Subscribe(ctx, channel)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.Info("sse subscriber connected", "channel", channel)

	for {
		select {
		case <-ctx.Done():
			log.Info("sse subscriber disconnected", "channel", channel)
			return
		case env := <-sub:
			payload, err := json.Marshal(env.Event)
			if err != nil {
				log.Error("failed to encode event", "error", err, "event_id", env.EventID)
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n",
				env.EventID, env.Event.Name, payload)
			flusher.Flush()
		}
	}
}
