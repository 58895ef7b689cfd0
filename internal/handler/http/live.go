package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/sse"
)

type LiveHandler interface {
	CheckIns(w http.ResponseWriter, r *http.Request)
}

type liveHandlerImpl struct {
	hub       *sse.Hub
	keepalive time.Duration
}

func NewLiveHandler(hub *sse.Hub) LiveHandler {
	return &liveHandlerImpl{
		hub:       hub,
		keepalive: 30 * time.Second,
	}
}

// CheckIns streams check-in events as SSE. ?employee_id narrows the feed to one employee.
func (h *liveHandlerImpl) CheckIns(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	topic := sse.TopicAll
	if employeeID := r.URL.Query().Get("employee_id"); employeeID != "" {
		topic = employeeID
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(topic)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"topic\":%q}\n\n", topic)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
