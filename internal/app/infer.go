package service

import (
	"context"
	"errors"

	"github.com/okian/vibe/internal/adapters/catalog"
	"github.com/okian/vibe/internal/domain/model"
	"github.com/okian/vibe/internal/domain/scoring"
)

// Weather is a raw context reading before classification.
type Weather struct {
	Timestamp   int64
	Temperature float64
	Humidity    float64
	Condition   string
}

// InferRequest carries one gesture reading and the current weather.
type InferRequest struct {
	UserID  string
	Gesture model.Event
	Weather Weather
	// TopN <= 0 selects the configured default.
	TopN int
	// TracksPerGenre <= 0 selects catalog.DefaultTopN.
	TracksPerGenre int
}

// Label is an emotion with the confidence it was reported or derived with.
type Label struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// InferRecommendation is a ranked genre with its catalog content.
type InferRecommendation struct {
	Genre  string          `json:"genre"`
	Score  float64         `json:"score"`
	Tracks []catalog.Track `json:"tracks"`
}

// InferResult is the outcome of the full inference flow.
type InferResult struct {
	Gesture         Label
	Weather         Label
	Fused           Label
	Matched         bool
	TimeBucket      scoring.TimeBucket
	Epsilon         float64
	Recommendations []InferRecommendation
}

// Infer classifies the weather, fuses it with the gesture, ranks genres and
// attaches catalog tracks to each. The weather label always feeds the context
// boost, even when it falls outside the fusion tolerance. Like Recommend, a
// failure to persist pruned cooldowns is returned together with the result.
func (s *Service) Infer(ctx context.Context, req InferRequest) (InferResult, error) {
	if !s.started.Load() {
		return InferResult{}, ErrNotStarted
	}

	wEmotion, wConf := s.classifier.Classify(req.Weather.Temperature, req.Weather.Humidity, req.Weather.Condition)
	weatherEvent := model.Event{
		Timestamp:  req.Weather.Timestamp,
		Emotion:    wEmotion,
		Confidence: model.Conf(wConf),
	}

	readings, err := s.AlignAndFuse(ctx, []model.Event{req.Gesture}, []model.Event{weatherEvent})
	if err != nil {
		return InferResult{}, err
	}
	r := readings[0]

	res, persistErr := s.Recommend(ctx, scoring.Request{
		UserID:         req.UserID,
		Timestamp:      req.Gesture.Timestamp,
		FusedEmotion:   r.FusedEmotion,
		ContextEmotion: wEmotion,
		TopN:           req.TopN,
	})
	if errors.Is(persistErr, ErrNotStarted) {
		return InferResult{}, persistErr
	}

	out := InferResult{
		Gesture:         Label{Label: r.GestureEmotion, Confidence: r.GestureConfidence},
		Weather:         Label{Label: wEmotion, Confidence: wConf},
		Fused:           Label{Label: r.FusedEmotion, Confidence: r.FusedConfidence},
		Matched:         r.Matched,
		TimeBucket:      res.TimeBucket,
		Epsilon:         res.Epsilon,
		Recommendations: make([]InferRecommendation, 0, len(res.Recommendations)),
	}
	for _, rec := range res.Recommendations {
		out.Recommendations = append(out.Recommendations, InferRecommendation{
			Genre:  rec.Genre,
			Score:  rec.Score,
			Tracks: s.catalog.Lookup(rec.Genre, req.TracksPerGenre),
		})
	}
	return out, persistErr
}
