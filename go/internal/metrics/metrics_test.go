package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPrometheusCollector(t *testing.T) {
	Convey("Given a collector on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewPrometheus(WithRegistry(registry), WithNamespace("test"))

		Convey("Store divergence is counted per operation", func() {
			m.RecordStoreDivergence("set")
			m.RecordStoreDivergence("set")
			m.RecordStoreDivergence("invalidate")
			So(testutil.ToFloat64(m.storeDivergence.WithLabelValues("set")), ShouldEqual, 2)
			So(testutil.ToFloat64(m.storeDivergence.WithLabelValues("invalidate")), ShouldEqual, 1)
		})

		Convey("Transitions and autopicks are labelled", func() {
			m.RecordTransition("pick", "committed")
			m.RecordAutopick("adp")
			m.RecordLockContention()
			So(testutil.ToFloat64(m.transitions.WithLabelValues("pick", "committed")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.autopicks.WithLabelValues("adp")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.lockContention), ShouldEqual, 1)
		})

		Convey("Outbox publishes record status and latency", func() {
			m.RecordEventPublished("PickMade", false, 20*time.Millisecond)
			m.RecordPublishAttempt("PickMade", 2, true)
			m.RecordDueDrafts(3)
			So(testutil.ToFloat64(m.eventsPublished.WithLabelValues("PickMade", "failure")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.publishAttempts.WithLabelValues("PickMade", "2", "success")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.schedulerDueSize), ShouldEqual, 3)
		})

		Convey("Every metric family is registered", func() {
			m.RecordOutboxBatch(5, time.Second)
			families, err := registry.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThanOrEqualTo, 4)
		})
	})

	Convey("The no-op collector satisfies the interface", t, func() {
		var c Collector = NoOp{}
		So(func() { c.RecordTransition("pick", "committed") }, ShouldNotPanic)
	})
}
