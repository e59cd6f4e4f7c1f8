package queue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/vibe/internal/adapters/mq/queue"
	"github.com/okian/vibe/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func job(id string) queue.Job {
	return model.Feedback{EventID: id, UserID: "u1", Timestamp: 1, Genre: "lofi", Emotion: "calm", Outcome: model.OutcomeLike}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity two", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("When jobs are enqueued and dequeued", func() {
			So(q.Enqueue(ctx, job("a")), ShouldBeNil)
			So(q.Len(), ShouldEqual, 1)
			got := <-q.Dequeue()

			Convey("Then they come out in order", func() {
				So(got.EventID, ShouldEqual, "a")
				So(q.Len(), ShouldEqual, 0)
				So(q.Cap(), ShouldEqual, 2)
			})
		})

		Convey("When the queue is full", func() {
			So(q.Enqueue(ctx, job("a")), ShouldBeNil)
			So(q.Enqueue(ctx, job("b")), ShouldBeNil)
			err := q.Enqueue(ctx, job("c"))

			Convey("Then enqueue refuses without blocking", func() {
				So(errors.Is(err, queue.ErrFull), ShouldBeTrue)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(errors.Is(q.Enqueue(cctx, job("a")), context.Canceled), ShouldBeTrue)
		})

		Convey("When the queue is closed with jobs pending", func() {
			So(q.Enqueue(ctx, job("a")), ShouldBeNil)
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then new jobs are refused and pending ones drain", func() {
				So(errors.Is(q.Enqueue(ctx, job("b")), queue.ErrClosed), ShouldBeTrue)
				var drained []string
				for j := range q.Dequeue() {
					drained = append(drained, j.EventID)
				}
				So(drained, ShouldResemble, []string{"a"})
			})
		})
	})
}
