package api

import (
	"net/http"

	service "github.com/okian/vibe/internal/app"
	"github.com/okian/vibe/internal/domain/model"
	"github.com/okian/vibe/internal/domain/scoring"
)

type gesturePayload struct {
	// Timestamp defaults to the server clock.
	Timestamp  *int64   `json:"timestamp" validate:"omitempty,gte=0"`
	Emotion    string   `json:"emotion" validate:"required,max=64"`
	Confidence *float64 `json:"confidence" validate:"omitempty,min=0,max=1"`
}

type weatherPayload struct {
	// Timestamp defaults to the gesture timestamp.
	Timestamp   *int64  `json:"timestamp" validate:"omitempty,gte=0"`
	Temperature float64 `json:"temperature" validate:"gte=-100,lte=100"`
	Humidity    float64 `json:"humidity" validate:"gte=0,lte=100"`
	Condition   string  `json:"condition" validate:"required,max=32"`
}

type inferRequest struct {
	UserID         string         `json:"user_id" validate:"required,max=256"`
	Gesture        gesturePayload `json:"gesture"`
	Weather        weatherPayload `json:"weather"`
	TopN           int            `json:"top_n" validate:"gte=0,lte=50"`
	TracksPerGenre int            `json:"tracks_per_genre" validate:"gte=0,lte=20"`
}

type inferResponse struct {
	UserID          string                        `json:"user_id"`
	Timestamp       int64                         `json:"timestamp"`
	GestureEmotion  service.Label                 `json:"gesture_emotion"`
	WeatherEmotion  service.Label                 `json:"weather_emotion"`
	FusedEmotion    service.Label                 `json:"fused_emotion"`
	Matched         bool                          `json:"matched"`
	TimeBucket      scoring.TimeBucket            `json:"time_bucket"`
	Recommendations []service.InferRecommendation `json:"recommendations"`
}

// handleInfer handles POST /infer: classify weather, fuse, recommend, attach tracks.
func (s *Server) handleInfer(w http.ResponseWriter, r *http.Request) {
	const op = "api.infer"
	var req inferRequest
	if err := decode(w, r, op, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	ts := s.timestampOr(req.Gesture.Timestamp)
	weatherTS := ts
	if req.Weather.Timestamp != nil {
		weatherTS = *req.Weather.Timestamp
	}

	res, err := s.deps.Infer(r.Context(), service.InferRequest{
		UserID: req.UserID,
		Gesture: model.Event{
			Timestamp:  ts,
			Emotion:    req.Gesture.Emotion,
			Confidence: req.Gesture.Confidence,
		},
		Weather: service.Weather{
			Timestamp:   weatherTS,
			Temperature: req.Weather.Temperature,
			Humidity:    req.Weather.Humidity,
			Condition:   req.Weather.Condition,
		},
		TopN:           req.TopN,
		TracksPerGenre: req.TracksPerGenre,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, inferResponse{
		UserID:          req.UserID,
		Timestamp:       ts,
		GestureEmotion:  res.Gesture,
		WeatherEmotion:  res.Weather,
		FusedEmotion:    res.Fused,
		Matched:         res.Matched,
		TimeBucket:      res.TimeBucket,
		Recommendations: res.Recommendations,
	})
}
