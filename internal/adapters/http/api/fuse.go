package api

import (
	"net/http"

	"github.com/okian/vibe/internal/domain/model"
)

// eventPayload is one emotion reading on the wire.
type eventPayload struct {
	Timestamp  int64    `json:"timestamp" validate:"gte=0"`
	Emotion    string   `json:"emotion" validate:"required,max=64"`
	Confidence *float64 `json:"confidence" validate:"omitempty,min=0,max=1"`
}

func (e eventPayload) toModel() model.Event {
	return model.Event{Timestamp: e.Timestamp, Emotion: e.Emotion, Confidence: e.Confidence}
}

func toEvents(in []eventPayload) []model.Event {
	out := make([]model.Event, len(in))
	for i, e := range in {
		out[i] = e.toModel()
	}
	return out
}

type fuseRequest struct {
	Gestures []eventPayload `json:"gestures" validate:"max=10000,dive"`
	Contexts []eventPayload `json:"contexts" validate:"max=10000,dive"`
}

type fuseResponse struct {
	Readings []model.FusedReading `json:"readings"`
}

// handleFuse handles POST /fuse requests.
func (s *Server) handleFuse(w http.ResponseWriter, r *http.Request) {
	const op = "api.fuse"
	var req fuseRequest
	if err := decode(w, r, op, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	readings, err := s.deps.AlignAndFuse(r.Context(), toEvents(req.Gestures), toEvents(req.Contexts))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if readings == nil {
		readings = []model.FusedReading{}
	}
	writeJSON(w, http.StatusOK, fuseResponse{Readings: readings})
}
