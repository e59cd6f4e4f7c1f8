package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/vibe/internal/adapters/catalog"
	"github.com/okian/vibe/internal/adapters/http/api"
	"github.com/okian/vibe/internal/adapters/repository"
	service "github.com/okian/vibe/internal/app"
	"github.com/okian/vibe/internal/domain/model"
	"github.com/okian/vibe/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

const now int64 = 1722064321

type mockDependencies struct {
	mu sync.Mutex

	seen         map[string]bool
	feedback     []model.Feedback
	enqueued     []model.Feedback
	enqueueLimit int // -1 means unlimited
	recommend    []scoring.Request
	infer        []service.InferRequest
	err          error
}

func newMock() *mockDependencies {
	return &mockDependencies{seen: map[string]bool{}, enqueueLimit: -1}
}

func (m *mockDependencies) AlignAndFuse(_ context.Context, gestures, contexts []model.Event) ([]model.FusedReading, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.FusedReading
	for _, g := range gestures {
		out = append(out, model.FusedReading{Timestamp: g.Timestamp, GestureEmotion: g.Emotion, FusedEmotion: g.Emotion, Matched: len(contexts) > 0})
	}
	return out, nil
}

func (m *mockDependencies) Recommend(_ context.Context, req scoring.Request) (scoring.Result, error) {
	m.mu.Lock()
	m.recommend = append(m.recommend, req)
	m.mu.Unlock()
	if m.err != nil {
		return scoring.Result{}, m.err
	}
	return scoring.Result{
		TimeBucket:      scoring.Morning,
		Epsilon:         0.08,
		Recommendations: []scoring.Recommendation{{Genre: "lofi", Score: 0.78}, {Genre: "ambient", Score: 0.75}},
	}, nil
}

func (m *mockDependencies) Infer(_ context.Context, req service.InferRequest) (service.InferResult, error) {
	m.mu.Lock()
	m.infer = append(m.infer, req)
	m.mu.Unlock()
	if m.err != nil {
		return service.InferResult{}, m.err
	}
	return service.InferResult{
		Gesture:    service.Label{Label: req.Gesture.Emotion, Confidence: 0.8},
		Weather:    service.Label{Label: "calm", Confidence: 0.7},
		Fused:      service.Label{Label: "calm", Confidence: 0.9},
		Matched:    true,
		TimeBucket: scoring.Morning,
		Recommendations: []service.InferRecommendation{
			{Genre: "lofi", Score: 0.78, Tracks: []catalog.Track{{Title: "Lofi Chill Beats", URL: "https://example.com/lofi"}}},
		},
	}, nil
}

func (m *mockDependencies) RecordFeedback(_ context.Context, fb model.Feedback) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if fb.EventID != "" && m.seen[fb.EventID] {
		return true, nil
	}
	m.seen[fb.EventID] = true
	m.feedback = append(m.feedback, fb)
	return false, nil
}

func (m *mockDependencies) EnqueueFeedback(_ context.Context, fb model.Feedback) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueLimit >= 0 && len(m.enqueued) >= m.enqueueLimit {
		return false
	}
	m.enqueued = append(m.enqueued, fb)
	return true
}

func (m *mockDependencies) Profile(_ context.Context, userID string) (*model.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p := model.NewProfile(userID)
	p.GenreWeights["lofi"] = 0.12
	return p, nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any { return m.stats }

func newRouter(deps *mockDependencies, opts ...api.Option) http.Handler {
	opts = append([]api.Option{api.WithClock(func() time.Time { return time.Unix(now, 0) })}, opts...)
	return api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true}}, opts...).Routes()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a router over mock dependencies", t, func() {
		h := newRouter(newMock())

		Convey("Then /healthz serves Prometheus metrics", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then /stats returns the provider's map", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeBody(w)["started"], ShouldEqual, true)
		})

		Convey("Then unknown paths return a JSON 404", func() {
			w := do(h, http.MethodGet, "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeBody(w)["code"], ShouldEqual, "not_found")
		})

		Convey("Then a wrong method is refused", func() {
			w := do(h, http.MethodGet, "/feedback", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServer_Feedback(t *testing.T) {
	Convey("Given a router over mock dependencies", t, func() {
		deps := newMock()
		h := newRouter(deps)
		body := `{"event_id":"e1","user_id":"u1","genre":"lofi","emotion":"calm","outcome":"like"}`

		Convey("When valid feedback is posted", func() {
			w := do(h, http.MethodPost, "/feedback", body)

			Convey("Then it is recorded with the server clock", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				out := decodeBody(w)
				So(out["status"], ShouldEqual, "recorded")
				So(out["message"], ShouldEqual, "Feedback recorded: like for lofi")
				So(deps.feedback, ShouldHaveLength, 1)
				So(deps.feedback[0].Timestamp, ShouldEqual, now)
				So(deps.feedback[0].Outcome, ShouldEqual, model.OutcomeLike)
			})

			Convey("And posting it again reports a duplicate", func() {
				w := do(h, http.MethodPost, "/feedback", body)
				So(w.Code, ShouldEqual, http.StatusOK)
				out := decodeBody(w)
				So(out["status"], ShouldEqual, "duplicate")
				So(out["duplicate"], ShouldEqual, true)
			})
		})

		Convey("When the outcome is not like or skip", func() {
			w := do(h, http.MethodPost, "/feedback", `{"user_id":"u1","genre":"lofi","emotion":"calm","outcome":"love"}`)

			Convey("Then it is a bad request naming the field", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				out := decodeBody(w)
				So(out["code"], ShouldEqual, "bad_request")
				So(out["message"], ShouldContainSubstring, "outcome")
				So(deps.feedback, ShouldBeEmpty)
			})
		})

		Convey("When required fields are missing", func() {
			w := do(h, http.MethodPost, "/feedback", `{"genre":"lofi","outcome":"like"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body is not JSON", func() {
			w := do(h, http.MethodPost, "/feedback", `not json`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the store is unavailable", func() {
			deps.err = fmt.Errorf("%w: disk gone", repository.ErrStorageUnavailable)
			w := do(h, http.MethodPost, "/feedback", body)

			Convey("Then the caller sees 503", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decodeBody(w)["code"], ShouldEqual, "storage_unavailable")
			})
		})

		Convey("When the service is not running", func() {
			deps.err = service.ErrNotStarted
			w := do(h, http.MethodPost, "/feedback", body)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When an unexpected error occurs", func() {
			deps.err = errors.New("boom")
			w := do(h, http.MethodPost, "/feedback", body)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decodeBody(w)["code"], ShouldEqual, "internal_error")
		})
	})

	Convey("Given a router with a one-request feedback rate limit", t, func() {
		h := newRouter(newMock(), api.WithRateLimit(1, time.Minute))
		body := `{"user_id":"u1","genre":"lofi","emotion":"calm","outcome":"skip"}`

		Convey("When the same client posts twice", func() {
			first := do(h, http.MethodPost, "/feedback", body)
			second := do(h, http.MethodPost, "/feedback", body)

			Convey("Then the second request is limited", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
			})

			Convey("And read endpoints are not limited", func() {
				So(do(h, http.MethodGet, "/stats", "").Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestServer_FeedbackBatch(t *testing.T) {
	Convey("Given a router over mock dependencies", t, func() {
		deps := newMock()
		h := newRouter(deps)
		batch := `{"items":[
			{"event_id":"a","user_id":"u1","genre":"lofi","emotion":"calm","outcome":"like"},
			{"event_id":"b","user_id":"u1","genre":"jazz","emotion":"calm","outcome":"skip","timestamp":100},
			{"event_id":"c","user_id":"u2","genre":"pop","emotion":"happy","outcome":"like"}
		]}`

		Convey("When every item fits in the queue", func() {
			w := do(h, http.MethodPost, "/feedback/batch", batch)

			Convey("Then the batch is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				out := decodeBody(w)
				So(out["accepted"], ShouldEqual, 3.0)
				So(deps.enqueued, ShouldHaveLength, 3)
				So(deps.enqueued[1].Timestamp, ShouldEqual, int64(100))
			})
		})

		Convey("When the queue refuses after two items", func() {
			deps.enqueueLimit = 2
			w := do(h, http.MethodPost, "/feedback/batch", batch)

			Convey("Then the caller sees backpressure with counts", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				out := decodeBody(w)
				So(out["accepted"], ShouldEqual, 2.0)
				So(out["rejected"], ShouldEqual, 1.0)
			})
		})

		Convey("When the batch is empty", func() {
			w := do(h, http.MethodPost, "/feedback/batch", `{"items":[]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When one item is invalid", func() {
			w := do(h, http.MethodPost, "/feedback/batch", `{"items":[{"user_id":"u1","genre":"lofi","emotion":"calm","outcome":"meh"}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.enqueued, ShouldBeEmpty)
		})
	})
}

func TestServer_Recommend(t *testing.T) {
	Convey("Given a router over mock dependencies", t, func() {
		deps := newMock()
		h := newRouter(deps)

		Convey("When the timestamp is omitted", func() {
			w := do(h, http.MethodPost, "/recommend", `{"user_id":"u1","fused_emotion":"calm","context_emotion":"calm"}`)

			Convey("Then the server clock is used and the ranking returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.recommend, ShouldHaveLength, 1)
				So(deps.recommend[0].Timestamp, ShouldEqual, now)
				So(deps.recommend[0].ContextEmotion, ShouldEqual, "calm")

				out := decodeBody(w)
				So(out["time_bucket"], ShouldEqual, "morning")
				recs := out["recommendations"].([]any)
				So(recs, ShouldHaveLength, 2)
				So(recs[0].(map[string]any)["genre"], ShouldEqual, "lofi")
			})
		})

		Convey("When an explicit timestamp and top_n are sent", func() {
			w := do(h, http.MethodPost, "/recommend", `{"user_id":"u1","fused_emotion":"calm","timestamp":0,"top_n":5}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.recommend[0].Timestamp, ShouldEqual, int64(0))
			So(deps.recommend[0].TopN, ShouldEqual, 5)
		})

		Convey("When top_n is out of range", func() {
			w := do(h, http.MethodPost, "/recommend", `{"user_id":"u1","fused_emotion":"calm","top_n":500}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When persisting pruned cooldowns fails", func() {
			deps.err = fmt.Errorf("%w: put", repository.ErrStorageUnavailable)
			w := do(h, http.MethodPost, "/recommend", `{"user_id":"u1","fused_emotion":"calm"}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestServer_Infer(t *testing.T) {
	Convey("Given a router over mock dependencies", t, func() {
		deps := newMock()
		h := newRouter(deps)

		Convey("When only the gesture carries a timestamp", func() {
			w := do(h, http.MethodPost, "/infer", `{
				"user_id":"u1",
				"gesture":{"emotion":"calm","confidence":0.8,"timestamp":500},
				"weather":{"temperature":18,"humidity":60,"condition":"rainy"}
			}`)

			Convey("Then the weather reading is taken at the same time", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.infer, ShouldHaveLength, 1)
				So(deps.infer[0].Gesture.Timestamp, ShouldEqual, int64(500))
				So(deps.infer[0].Weather.Timestamp, ShouldEqual, int64(500))
				So(*deps.infer[0].Gesture.Confidence, ShouldEqual, 0.8)
			})

			Convey("And the response carries labels and tracks", func() {
				out := decodeBody(w)
				So(out["timestamp"], ShouldEqual, 500.0)
				So(out["fused_emotion"].(map[string]any)["label"], ShouldEqual, "calm")
				So(out["weather_emotion"].(map[string]any)["confidence"], ShouldEqual, 0.7)
				rec := out["recommendations"].([]any)[0].(map[string]any)
				So(rec["tracks"], ShouldHaveLength, 1)
			})
		})

		Convey("When no timestamps are sent", func() {
			w := do(h, http.MethodPost, "/infer", `{"user_id":"u1","gesture":{"emotion":"happy"},"weather":{"condition":"sunny","temperature":30}}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.infer[0].Gesture.Timestamp, ShouldEqual, now)
			So(deps.infer[0].Gesture.Confidence, ShouldBeNil)
		})

		Convey("When the humidity is impossible", func() {
			w := do(h, http.MethodPost, "/infer", `{"user_id":"u1","gesture":{"emotion":"happy"},"weather":{"condition":"sunny","humidity":140}}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the gesture emotion is missing", func() {
			w := do(h, http.MethodPost, "/infer", `{"user_id":"u1","gesture":{},"weather":{"condition":"sunny"}}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_Fuse(t *testing.T) {
	Convey("Given a router over mock dependencies", t, func() {
		h := newRouter(newMock())

		Convey("When gestures and contexts are posted", func() {
			w := do(h, http.MethodPost, "/fuse", `{
				"gestures":[{"timestamp":1,"emotion":"happy","confidence":0.9},{"timestamp":2,"emotion":"sad"}],
				"contexts":[{"timestamp":1,"emotion":"calm","confidence":0}]
			}`)

			Convey("Then one reading per gesture comes back", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeBody(w)["readings"], ShouldHaveLength, 2)
			})
		})

		Convey("When no gestures are posted", func() {
			w := do(h, http.MethodPost, "/fuse", `{"contexts":[]}`)

			Convey("Then an empty list is returned, not null", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"readings":[]`)
			})
		})

		Convey("When a confidence is out of range", func() {
			w := do(h, http.MethodPost, "/fuse", `{"gestures":[{"timestamp":1,"emotion":"happy","confidence":1.5}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a timestamp is negative", func() {
			w := do(h, http.MethodPost, "/fuse", `{"gestures":[{"timestamp":-1,"emotion":"happy"}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_Profile(t *testing.T) {
	Convey("Given a router over mock dependencies", t, func() {
		deps := newMock()
		h := newRouter(deps)

		Convey("When a profile is requested", func() {
			w := do(h, http.MethodGet, "/profiles/u1", "")

			Convey("Then the stored shape is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				out := decodeBody(w)
				So(out["user_id"], ShouldEqual, "u1")
				So(out["genre_weights"].(map[string]any)["lofi"], ShouldEqual, 0.12)
			})
		})

		Convey("When the service is stopping", func() {
			deps.err = service.ErrNotStarted
			w := do(h, http.MethodGet, "/profiles/u1", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}
