package collector

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pixelrelay/internal/domain/analytics"
	"github.com/okian/pixelrelay/internal/domain/model"
	"github.com/okian/pixelrelay/pkg/logger"
)

func TestClient(t *testing.T) {
	_ = logger.Init()

	Convey("Given a collector endpoint", t, func() {
		var (
			hits    atomic.Int32
			status  atomic.Int32
			lastReq atomic.Pointer[Request]
			lastURL atomic.Pointer[string]
		)
		status.Store(http.StatusNoContent)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			u := r.URL.String()
			lastURL.Store(&u)
			raw, _ := io.ReadAll(r.Body)
			var req Request
			_ = json.Unmarshal(raw, &req)
			lastReq.Store(&req)
			w.WriteHeader(int(status.Load()))
		}))
		defer srv.Close()

		c := New(srv.URL+"/", WithMeasurementID("G-TEST"), WithTimeout(2*time.Second))
		env := model.NewEnvelope("evt-1", "client-9", analytics.Event{
			Name:         analytics.Purchase,
			PageLocation: "https://shop/thanks",
			Value:        analytics.Float(59.9),
		})

		Convey("the event is posted with its name and params", func() {
			So(c.Deliver(context.Background(), env), ShouldBeNil)
			So(hits.Load(), ShouldEqual, 1)
			So(*lastURL.Load(), ShouldEqual, "/mp/collect?measurement_id=G-TEST")

			req := lastReq.Load()
			So(req.ClientID, ShouldEqual, "client-9")
			So(req.Consent, ShouldBeNil)
			So(len(req.Events), ShouldEqual, 1)
			So(req.Events[0].Name, ShouldEqual, "purchase")
			So(req.Events[0].Params.PageLocation, ShouldEqual, "https://shop/thanks")
			So(*req.Events[0].Params.Value, ShouldEqual, 59.9)
		})

		Convey("the latest consent is attached to every request", func() {
			c.SetConsent(analytics.ConsentSignals{AnalyticsStorage: analytics.Granted, AdStorage: analytics.Granted})
			c.SetConsent(analytics.ConsentSignals{AnalyticsStorage: analytics.Denied, AdStorage: analytics.Granted})
			So(c.Deliver(context.Background(), env), ShouldBeNil)
			So(c.Deliver(context.Background(), env), ShouldBeNil)

			req := lastReq.Load()
			So(req.Consent, ShouldNotBeNil)
			So(req.Consent.AnalyticsStorage, ShouldEqual, analytics.Denied)
			So(req.Consent.AdStorage, ShouldEqual, analytics.Granted)
		})

		Convey("a rejected request is attempted once", func() {
			status.Store(http.StatusBadRequest)
			err := c.Deliver(context.Background(), env)
			So(errors.Is(err, ErrStatus), ShouldBeTrue)
			So(hits.Load(), ShouldEqual, 1)
		})

		Convey("a transport failure is reported", func() {
			srv.Close()
			err := c.Deliver(context.Background(), env)
			So(errors.Is(err, ErrRequest), ShouldBeTrue)
		})
	})
}
