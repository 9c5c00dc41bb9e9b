package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewManager(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			m.ratingsApplied.Inc()

			Convey("Then metrics should be registered under the namespace", func() {
				n, err := testutil.GatherAndCount(registry, "test_unit_ratings_applied_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})

			Convey("And constant labels should be attached", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				So(families[0].GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
			})
		})

		Convey("When registering the same manager twice", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration should panic", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestRecordFunctions(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording recommendation metrics", func() {
			before := testutil.ToFloat64(globalManager.candidatesScored)
			RecordCandidatesScored(42)
			RecordRecommendationRequest("profile", "ok")
			RecordRankingLatency("profile", 1.5)
			RecordRecommendationsServed(10)
			RecordUnresolvedRatings(2)

			Convey("Then counters should move", func() {
				So(testutil.ToFloat64(globalManager.candidatesScored)-before, ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.recommendationRequests.WithLabelValues("profile", "ok")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When updating catalog counts", func() {
			UpdateCatalogCounts(10, 3, 25, 4)

			Convey("Then gauges should reflect the values", func() {
				So(testutil.ToFloat64(globalManager.catalogItems), ShouldEqual, 10)
				So(testutil.ToFloat64(globalManager.catalogUsers), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.ratingsTotal), ShouldEqual, 25)
				So(testutil.ToFloat64(globalManager.watchlisted), ShouldEqual, 4)
			})
		})

		Convey("When recording the remaining metrics", func() {
			Convey("Then nothing should panic", func() {
				So(func() {
					RecordRatingAccepted()
					RecordRatingDuplicate()
					RecordRatingApplied()
					RecordRatingFailed()
					RecordStoreQueryLatency("all_items", 0.2)
					RecordStoreUpdateLatency("apply_rating", 0.4)
					UpdateQueueSize(1)
					UpdateQueueCapacity(10)
					UpdateQueueUtilization(0.1)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					RecordQueueProcessingLatency(0.01)
					UpdateWorkerCount(4)
					UpdateWorkerMessagesPerSecond(12.5)
					RecordWorkerProcessingLatency(3)
					RecordWorkerError()
					RecordHTTPRequest("movies", "GET", "200")
					RecordHTTPRequestDuration("movies", "GET", "200", 4)
					RecordErrorByComponent("worker", "apply_error")
					RecordErrorByType("client_error", "medium")
					RecordErrorByEndpoint("movies", "GET", "not_found")
					RecordErrorLatency("http", "not_found", 1)
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})

		Convey("Then GetRegistry should expose the custom registry", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
