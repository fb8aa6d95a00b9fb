package tracing

import (
	"context"
	"net/http"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestSetup(t *testing.T) {
	Convey("Without an endpoint", t, func() {
		shutdown, err := Setup(context.Background(), "pixelrelay-test", "")
		So(err, ShouldBeNil)
		So(shutdown(context.Background()), ShouldBeNil)

		Convey("trace context still propagates", func() {
			tid, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
			sid, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
			sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled})
			ctx := trace.ContextWithRemoteSpanContext(context.Background(), sc)

			h := http.Header{}
			otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(h))
			So(h.Get("traceparent"), ShouldEqual, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
		})
	})

	Convey("With an endpoint a provider is installed", t, func() {
		shutdown, err := Setup(context.Background(), "pixelrelay-test", "http://127.0.0.1:4318/v1/traces")
		So(err, ShouldBeNil)
		So(shutdown(context.Background()), ShouldBeNil)
	})
}
