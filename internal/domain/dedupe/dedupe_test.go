package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	dedupe "github.com/okian/pixelrelay/internal/domain/dedupe"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("a new id is recorded and a repeat is reported", func() {
			So(d.SeenAndRecord(ctx, "event-1"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "event-1"), ShouldBeTrue)
			So(d.Size(), ShouldEqual, 1)
		})

		Convey("empty ids are never recorded", func() {
			So(d.SeenAndRecord(ctx, ""), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, ""), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("an unrecorded id is accepted again", func() {
			d.SeenAndRecord(ctx, "event-1")
			d.Unrecord(ctx, "event-1")
			d.Unrecord(ctx, "missing")
			So(d.Size(), ShouldEqual, 0)
			So(d.SeenAndRecord(ctx, "event-1"), ShouldBeFalse)
		})
	})

	Convey("Given a deduper bounded to three ids", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := 1; i <= 4; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("e-%d", i))
		}

		Convey("the oldest id is evicted first", func() {
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "e-4"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "e-2"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "e-1"), ShouldBeFalse)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("e-%d", i))
		}
		So(d.Size(), ShouldEqual, 1000)
	})
}

func TestInMemoryDeduper_Concurrent(t *testing.T) {
	Convey("Exactly one concurrent caller records an id", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var fresh atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(context.Background(), "same") {
					fresh.Add(1)
				}
			}()
		}
		wg.Wait()
		So(fresh.Load(), ShouldEqual, 1)
	})
}
