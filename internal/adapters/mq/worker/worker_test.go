package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	queue "github.com/okian/pixelrelay/internal/adapters/mq/queue"
	worker "github.com/okian/pixelrelay/internal/adapters/mq/worker"
	"github.com/okian/pixelrelay/internal/domain/analytics"
	model "github.com/okian/pixelrelay/internal/domain/model"
	logging "github.com/okian/pixelrelay/pkg/logger"
)

type mockQueue struct {
	ch chan queue.Envelope
}

func newMockQueue() *mockQueue {
	return &mockQueue{ch: make(chan queue.Envelope, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Envelope { return mq.ch }

func (mq *mockQueue) Close() error {
	close(mq.ch)
	return nil
}

type mockDeliverer struct {
	mu   sync.Mutex
	seen []string
	fail map[string]error
}

func newMockDeliverer() *mockDeliverer {
	return &mockDeliverer{fail: make(map[string]error)}
}

func (d *mockDeliverer) Deliver(_ context.Context, env queue.Envelope) error { //nolint:gocritic // hugeParam: envelopes travel by value
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, env.SourceID)
	return d.fail[env.SourceID]
}

func (d *mockDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func envelope(id string) queue.Envelope {
	return model.NewEnvelope(id, "client", analytics.Event{Name: analytics.PageView})
}

func TestInMemoryWorker(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a worker over a queue", t, func() {
		q := newMockQueue()
		d := newMockDeliverer()
		var errs []error
		var mu sync.Mutex
		w := worker.NewInMemoryWorker(q, d, worker.WithName("w-1"), worker.WithObserver(func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}))

		convey.Convey("it delivers every envelope and stops when the queue closes", func() {
			d.fail["bad"] = errors.New("boom")
			q.ch <- envelope("a")
			q.ch <- envelope("bad")
			q.ch <- envelope("c")
			_ = q.Close()

			w.Run(context.Background())

			convey.So(d.seen, convey.ShouldResemble, []string{"a", "bad", "c"})
			mu.Lock()
			defer mu.Unlock()
			convey.So(len(errs), convey.ShouldEqual, 3)
			convey.So(errs[0], convey.ShouldBeNil)
			convey.So(errs[1], convey.ShouldNotBeNil)
		})

		convey.Convey("Shutdown stops an idle worker", func() {
			go w.Run(context.Background())
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a pool over an in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		d := newMockDeliverer()
		d.fail["e-3"] = errors.New("rejected")
		p := worker.NewPool(4, q, d)
		convey.So(p.Stats().Workers, convey.ShouldEqual, 4)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p.Start(ctx)

		for _, id := range []string{"e-1", "e-2", "e-3", "e-4", "e-5"} {
			convey.So(q.Enqueue(ctx, envelope(id)), convey.ShouldBeNil)
		}

		convey.Convey("shutdown drains queued envelopes", func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			convey.So(p.Shutdown(sctx), convey.ShouldBeNil)

			convey.So(d.count(), convey.ShouldEqual, 5)
			stats := p.Stats()
			convey.So(stats.Delivered, convey.ShouldEqual, 4)
			convey.So(stats.Failed, convey.ShouldEqual, 1)
		})
	})
}
