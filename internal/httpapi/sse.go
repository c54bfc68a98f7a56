package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/calermo/seo-manager/internal/actions"
	"github.com/calermo/seo-manager/internal/service"
)

type notificationsResponse struct {
	Notifications []actions.Notification `json:"notifications"`
	PendingCount  int                    `json:"pending_count"`
}

func notificationsSnapshot(svc *service.Service) notificationsResponse {
	return notificationsResponse{
		Notifications: svc.Notifier().Active(),
		PendingCount:  svc.Queue().Len(),
	}
}

// handleNotificationStream pushes the active toast set and queue depth once
// a second over server-sent events.
func (s *Server) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	send := func() bool {
		payload, err := json.Marshal(notificationsSnapshot(s.svc))
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send() {
		return
	}

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if !send() {
				return
			}
		}
	}
}
