package gate

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/FrontGate/FrontGate/pkg/common"
)

// handleEvent accepts one face-match evaluation from the video-analysis
// service and queues it for sequential processing. 202 means queued, not
// processed; the stream's at-least-once delivery covers rejections.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var event common.MatchEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		slog.WarnContext(ctx, "Failed to decode match event", common.ErrAttr(err))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if (len(event.StreamHandle) == 0) || (event.Timestamp <= 0) {
		slog.WarnContext(ctx, "Rejecting malformed match event", "stream", event.StreamHandle,
			"timestamp", event.Timestamp)
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := s.Consumer.Enqueue(ctx, &event); err != nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
