package api

import (
	"net/http"

	"github.com/okian/vibe/internal/domain/scoring"
)

type recommendRequest struct {
	UserID string `json:"user_id" validate:"required,max=256"`
	// Timestamp defaults to the server clock.
	Timestamp      *int64 `json:"timestamp" validate:"omitempty,gte=0"`
	FusedEmotion   string `json:"fused_emotion" validate:"required,max=64"`
	ContextEmotion string `json:"context_emotion" validate:"max=64"`
	TopN           int    `json:"top_n" validate:"gte=0,lte=50"`
}

type recommendResponse struct {
	UserID          string                   `json:"user_id"`
	TimeBucket      scoring.TimeBucket       `json:"time_bucket"`
	Epsilon         float64                  `json:"epsilon"`
	Explored        bool                     `json:"explored"`
	Recommendations []scoring.Recommendation `json:"recommendations"`
}

// handleRecommend handles POST /recommend requests.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommend"
	var req recommendRequest
	if err := decode(w, r, op, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	res, err := s.deps.Recommend(r.Context(), scoring.Request{
		UserID:         req.UserID,
		Timestamp:      s.timestampOr(req.Timestamp),
		FusedEmotion:   req.FusedEmotion,
		ContextEmotion: req.ContextEmotion,
		TopN:           req.TopN,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendResponse{
		UserID:          req.UserID,
		TimeBucket:      res.TimeBucket,
		Epsilon:         res.Epsilon,
		Explored:        res.Explored,
		Recommendations: res.Recommendations,
	})
}
