package learner_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/vibe/internal/domain/learner"
	"github.com/okian/vibe/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const T int64 = 1722064321

func fixedClock(ts int64) func() time.Time {
	return func() time.Time { return time.Unix(ts, 0) }
}

func TestRecencyWeight(t *testing.T) {
	Convey("Given a learner with a seven day half-life", t, func() {
		l := learner.New()

		Convey("Then the weight is 1 at dt=0 and for future events", func() {
			So(l.RecencyWeight(T, T), ShouldEqual, 1.0)
			So(l.RecencyWeight(T+60, T), ShouldEqual, 1.0)
		})

		Convey("Then the weight halves after one half-life", func() {
			So(l.RecencyWeight(T-7*24*3600, T), ShouldAlmostEqual, 0.5, 1e-12)
		})

		Convey("Then the weight decreases monotonically with age", func() {
			prev := l.RecencyWeight(T, T)
			for _, age := range []int64{1, 60, 3600, 86400, 604800, 6048000} {
				w := l.RecencyWeight(T-age, T)
				So(w, ShouldBeLessThan, prev)
				So(w, ShouldBeGreaterThan, 0)
				prev = w
			}
		})
	})
}

func TestApply(t *testing.T) {
	Convey("Given a learner whose clock reads T", t, func() {
		l := learner.New(learner.WithClock(fixedClock(T)))
		p := model.NewProfile("u1")

		Convey("When the user likes lofi under calm", func() {
			p.CooldownGenres["lofi"] = T + 100
			u, err := l.Apply(p, model.Feedback{UserID: "u1", Timestamp: T, Genre: "lofi", Emotion: "calm", Outcome: model.OutcomeLike})

			Convey("Then weight and bias rise and the cooldown clears", func() {
				So(err, ShouldBeNil)
				So(u.Weight, ShouldEqual, 1.0)
				So(p.GenreWeights["lofi"], ShouldAlmostEqual, 0.12, 1e-12)
				So(p.EmotionBias["calm"], ShouldAlmostEqual, 0.04, 1e-12)
				So(p.CooldownGenres, ShouldNotContainKey, "lofi")
				So(p.History, ShouldResemble, []model.HistoryEntry{{Timestamp: T, Genre: "lofi", Outcome: model.OutcomeLike}})
			})
		})

		Convey("When the user skips jazz under calm", func() {
			_, err := l.Apply(p, model.Feedback{Timestamp: T, Genre: "jazz", Emotion: "calm", Outcome: model.OutcomeSkip})

			Convey("Then weight and bias fall and a two hour cooldown starts", func() {
				So(err, ShouldBeNil)
				So(p.GenreWeights["jazz"], ShouldAlmostEqual, -0.10, 1e-12)
				So(p.EmotionBias["calm"], ShouldAlmostEqual, -0.02, 1e-12)
				So(p.CooldownGenres["jazz"], ShouldEqual, T+7200)
			})
		})

		Convey("When the feedback is a week old", func() {
			_, err := l.Apply(p, model.Feedback{Timestamp: T - 7*24*3600, Genre: "pop", Emotion: "happy", Outcome: model.OutcomeLike})

			Convey("Then its effect is halved", func() {
				So(err, ShouldBeNil)
				So(p.GenreWeights["pop"], ShouldAlmostEqual, 0.06, 1e-9)
			})
		})

		Convey("When likes keep coming past the upper bound", func() {
			p.GenreWeights["edm"] = 1.95
			p.EmotionBias["excited"] = 0.79
			u, err := l.Apply(p, model.Feedback{Timestamp: T, Genre: "edm", Emotion: "excited", Outcome: model.OutcomeLike})
			So(err, ShouldBeNil)
			_, err = l.Apply(p, model.Feedback{Timestamp: T, Genre: "edm", Emotion: "excited", Outcome: model.OutcomeLike})
			So(err, ShouldBeNil)

			Convey("Then the touched keys are clamped but history still grows", func() {
				So(u.GenreClamped, ShouldBeTrue)
				So(u.EmotionClamped, ShouldBeTrue)
				So(p.GenreWeights["edm"], ShouldEqual, model.GenreWeightMax)
				So(p.EmotionBias["excited"], ShouldEqual, model.EmotionBiasMax)
				So(p.History, ShouldHaveLength, 2)
			})
		})

		Convey("When skips drive the weights below the lower bound", func() {
			p.GenreWeights["metal"] = -0.95
			p.EmotionBias["angry"] = -0.59
			_, err := l.Apply(p, model.Feedback{Timestamp: T, Genre: "metal", Emotion: "angry", Outcome: model.OutcomeSkip})

			Convey("Then they stop at the lower bound", func() {
				So(err, ShouldBeNil)
				So(p.GenreWeights["metal"], ShouldEqual, model.GenreWeightMin)
				So(p.EmotionBias["angry"], ShouldEqual, model.EmotionBiasMin)
			})
		})

		Convey("When other keys are already out of bounds", func() {
			p.GenreWeights["legacy"] = 5
			_, err := l.Apply(p, model.Feedback{Timestamp: T, Genre: "lofi", Emotion: "calm", Outcome: model.OutcomeLike})

			Convey("Then only the touched keys are clamped", func() {
				So(err, ShouldBeNil)
				So(p.GenreWeights["legacy"], ShouldEqual, 5.0)
			})
		})

		Convey("When the outcome is unknown", func() {
			_, err := l.Apply(p, model.Feedback{Timestamp: T, Genre: "lofi", Emotion: "calm", Outcome: "meh"})

			Convey("Then an error is returned and nothing changes", func() {
				So(errors.Is(err, learner.ErrInvalidOutcome), ShouldBeTrue)
				So(p.History, ShouldBeEmpty)
				So(p.GenreWeights, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a learner with custom rates", t, func() {
		l := learner.New(
			learner.WithClock(fixedClock(T)),
			learner.WithHalfLife(time.Hour),
			learner.WithRates(0.5, 0.25),
			learner.WithEmotionRates(0.1, 0.05),
			learner.WithCooldown(30*time.Minute),
		)
		p := model.NewProfile("u2")

		_, err := l.Apply(p, model.Feedback{Timestamp: T - 3600, Genre: "jazz", Emotion: "calm", Outcome: model.OutcomeSkip})

		Convey("Then the options drive the update", func() {
			So(err, ShouldBeNil)
			So(p.GenreWeights["jazz"], ShouldAlmostEqual, -0.125, 1e-9)
			So(p.EmotionBias["calm"], ShouldAlmostEqual, -0.025, 1e-9)
			So(p.CooldownGenres["jazz"], ShouldEqual, T+1800)
		})
	})
}
