package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.roundsScored.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_sub_rounds_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When a metric is clamped", func() {
			before := MetricClampedTotal("uptime")
			RecordMetricClamped("uptime")
			RecordMetricClamped("uptime")

			Convey("Then the per-metric counter advances", func() {
				So(MetricClampedTotal("uptime")-before, ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.metricClamped.WithLabelValues("uptime")), ShouldEqual, MetricClampedTotal("uptime"))
			})
		})

		Convey("When the active model changes", func() {
			SetActiveModel("aaa", "f1")
			SetActiveModel("bbb", "f2")

			Convey("Then only the latest model series remains", func() {
				So(testutil.CollectAndCount(globalManager.modelInfo), ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.modelInfo.WithLabelValues("bbb", "f2")), ShouldEqual, 1)
			})
		})

		Convey("When recording operational metrics", func() {
			So(func() {
				RecordRoundScored(3)
				RecordRoundFailure("duplicate_validator")
				RecordValidatorScored(0.2)
				RecordEvaluationOverflow()
				RecordModelLoad("ok")
				UpdateQueueSize(10)
				UpdateQueueCapacity(100)
				UpdateWorkerCount(4)
				RecordWorkerError()
				RecordErrorByComponent("worker", "scoring_error")
				RecordHarnessRun("compare", "match")
				RecordHTTPRequest("rounds", "POST", "200", 1.5)
			}, ShouldNotPanic)
			So(ModelLoadTotal("ok"), ShouldBeGreaterThanOrEqualTo, 1)
		})

		Convey("When writing a textfile", func() {
			path := filepath.Join(t.TempDir(), "fairness.prom")
			RecordMetricClamped("honesty")
			err := WriteTextfile(path)

			Convey("Then the file contains the clamp counter", func() {
				So(err, ShouldBeNil)
				raw, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(strings.Contains(string(raw), "fairness_scoring_metric_clamped_total"), ShouldBeTrue)
			})
		})
	})
}
