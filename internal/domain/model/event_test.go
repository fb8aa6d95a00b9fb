package model_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/pixelrelay/internal/domain/analytics"
	model "github.com/okian/pixelrelay/internal/domain/model"
)

func TestEnvelope(t *testing.T) {
	convey.Convey("Given a canonical event", t, func() {
		ev := analytics.Event{Name: analytics.PageView, PageLocation: "https://shop"}

		convey.Convey("When wrapping it in an envelope", func() {
			a := model.NewEnvelope("evt-1", "client-1", ev)
			b := model.NewEnvelope("evt-1", "client-1", ev)

			convey.Convey("Then ids are fresh and fields are kept", func() {
				convey.So(a.ID, convey.ShouldNotEqual, uuid.Nil)
				convey.So(a.ID, convey.ShouldNotEqual, b.ID)
				convey.So(a.SourceID, convey.ShouldEqual, "evt-1")
				convey.So(a.ClientID, convey.ShouldEqual, "client-1")
				convey.So(a.Event.Name, convey.ShouldEqual, analytics.PageView)
				convey.So(a.ReceivedAt, convey.ShouldHappenWithin, time.Second, time.Now())
				convey.So(a.Age(), convey.ShouldBeLessThan, time.Second)
			})
		})
	})
}
