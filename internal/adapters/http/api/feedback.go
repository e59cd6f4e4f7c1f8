package api

import (
	"fmt"
	"net/http"

	"github.com/okian/vibe/internal/domain/model"
)

// feedbackRequest mirrors the OpenAPI schema for POST /feedback.
type feedbackRequest struct {
	// EventID makes the submission idempotent; one is generated when empty.
	EventID string `json:"event_id" validate:"max=256"`
	UserID  string `json:"user_id" validate:"required,max=256"`
	// Timestamp defaults to the server clock.
	Timestamp *int64 `json:"timestamp" validate:"omitempty,gte=0"`
	Genre     string `json:"genre" validate:"required,max=64"`
	Emotion   string `json:"emotion" validate:"required,max=64"`
	Outcome   string `json:"outcome" validate:"required,oneof=like skip"`
}

func (s *Server) toFeedback(req feedbackRequest) model.Feedback {
	return model.Feedback{
		EventID:   req.EventID,
		UserID:    req.UserID,
		Timestamp: s.timestampOr(req.Timestamp),
		Genre:     req.Genre,
		Emotion:   req.Emotion,
		Outcome:   model.Outcome(req.Outcome),
	}
}

type feedbackBatchRequest struct {
	Items []feedbackRequest `json:"items" validate:"required,min=1,max=1000,dive"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	Message   string `json:"message"`
}

type batchResponse struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
}

// handlePostFeedback handles POST /feedback requests synchronously.
func (s *Server) handlePostFeedback(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_feedback"
	var req feedbackRequest
	if err := decode(w, r, op, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	duplicate, err := s.deps.RecordFeedback(r.Context(), s.toFeedback(req))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{
			Status:    "duplicate",
			Duplicate: true,
			Message:   fmt.Sprintf("Feedback %s already recorded", req.EventID),
		})
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{
		Status:  "recorded",
		Message: fmt.Sprintf("Feedback recorded: %s for %s", req.Outcome, req.Genre),
	})
}

// handlePostFeedbackBatch handles POST /feedback/batch by queueing every item.
// Items are queued in order; once the queue refuses one the rest are not tried.
func (s *Server) handlePostFeedbackBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_feedback_batch"
	var req feedbackBatchRequest
	if err := decode(w, r, op, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	accepted := 0
	for _, item := range req.Items {
		if !s.deps.EnqueueFeedback(r.Context(), s.toFeedback(item)) {
			break
		}
		accepted++
	}

	if rejected := len(req.Items) - accepted; rejected > 0 {
		writeJSON(w, http.StatusTooManyRequests, batchResponse{Status: "backpressure", Accepted: accepted, Rejected: rejected})
		return
	}
	writeJSON(w, http.StatusAccepted, batchResponse{Status: "accepted", Accepted: accepted})
}
