package queue_test

import (
	"context"
	"testing"
	"time"

	queue "github.com/mihrab-labs/salahstreak/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with capacity two", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("Records enqueue until the buffer is full", func() {
			So(q.Enqueue(ctx, queue.Record{RecordID: "a"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Record{RecordID: "b"}), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)

			Convey("And a full buffer reports backpressure instead of blocking", func() {
				So(q.Enqueue(ctx, queue.Record{RecordID: "c"}), ShouldBeFalse)
			})
		})

		Convey("Dequeue delivers records in order", func() {
			So(q.Enqueue(ctx, queue.Record{RecordID: "first"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Record{RecordID: "second"}), ShouldBeTrue)

			ch := q.Dequeue(ctx)
			So((<-ch).RecordID, ShouldEqual, "first")
			So((<-ch).RecordID, ShouldEqual, "second")
		})

		Convey("A closed queue rejects new records", func() {
			So(q.Close(), ShouldBeNil)
			So(q.Enqueue(ctx, queue.Record{RecordID: "late"}), ShouldBeFalse)

			Convey("And closing twice reports ErrClosed", func() {
				So(q.Close(), ShouldEqual, queue.ErrClosed)
			})
		})

		Convey("Buffered records drain after close, then the channel closes", func() {
			So(q.Enqueue(ctx, queue.Record{RecordID: "pending"}), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			ch := q.Dequeue(ctx)
			rec, ok := <-ch
			So(ok, ShouldBeTrue)
			So(rec.RecordID, ShouldEqual, "pending")

			select {
			case _, ok := <-ch:
				So(ok, ShouldBeFalse)
			case <-time.After(time.Second):
				t.Fatal("dequeue channel did not close")
			}
		})
	})
}
