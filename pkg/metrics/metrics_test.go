package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// gathered returns the summed counter/gauge value of a family in the registry.
func gathered(reg *prometheus.Registry, name string) (float64, bool) {
	families, err := reg.Gather()
	if err != nil {
		return 0, false
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range f.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				sum += float64(m.GetHistogram().GetSampleCount())
			}
		}
		return sum, true
	}
	return 0, false
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "linewatch")
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("plant"),
				WithSubsystem("line2"),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"site": "north"}),
				WithPrometheusRegistry(registry),
			)
			manager.logSize.Set(3)

			Convey("Then names and constant labels follow the options", func() {
				v, ok := gathered(registry, "plant_line2_log_entries")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 3)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() != "plant_line2_log_entries" {
						continue
					}
					for _, lp := range f.GetMetric()[0].GetLabel() {
						if lp.GetName() == "site" && lp.GetValue() == "north" {
							found = true
						}
					}
				}
				So(found, ShouldBeTrue)
				So(manager.refreshInterval, ShouldEqual, 5*time.Second)
			})
		})

		Convey("When options carry zero values", func() {
			manager := NewManager(
				WithPrometheusRegistry(prometheus.NewRegistry()),
				WithNamespace(""),
				WithCustomLabels(nil),
				WithRefreshInterval(0),
			)

			Convey("Then the defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "linewatch")
				So(manager.customLabels, ShouldBeEmpty)
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		reg := GetRegistry()

		Convey("When readings are appended", func() {
			before, _ := gathered(reg, "linewatch_line_readings_appended_total")
			RecordReadingAppended("capture", true)
			RecordReadingAppended("manual", false)
			after, ok := gathered(reg, "linewatch_line_readings_appended_total")

			Convey("Then the counter grows by two", func() {
				So(ok, ShouldBeTrue)
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When the log gauges are updated", func() {
			UpdateLogSize(7)
			UpdateLastRate(120)

			Convey("Then they report the latest values", func() {
				size, _ := gathered(reg, "linewatch_line_log_entries")
				rate, _ := gathered(reg, "linewatch_line_last_rate_per_minute")
				So(size, ShouldEqual, 7)
				So(rate, ShouldEqual, 120)
			})
		})

		Convey("When the capture gate flips", func() {
			UpdateCaptureInFlight(true)
			on, _ := gathered(reg, "linewatch_line_capture_in_flight")
			UpdateCaptureInFlight(false)
			off, _ := gathered(reg, "linewatch_line_capture_in_flight")

			Convey("Then the gauge follows it", func() {
				So(on, ShouldEqual, 1)
				So(off, ShouldEqual, 0)
			})
		})

		Convey("When recording every other metric", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordReadingStatus("normal")
					RecordCorrection("bottleCount")
					RecordRepositoryLatency("append", 0.2)
					RecordOCRRequest("gemini", "OK")
					RecordOCRLatency("gemini", 830)
					RecordNormalizeDegraded("structured")
					RecordCaptureRejected()
					RecordImageBytes(48 * 1024)
					UpdateImageCacheSize(4)
					RecordHTTPRequest("/api/capture", "POST", "201")
					RecordHTTPRequestDuration("/api/capture", "POST", "201", 900)
					RecordErrorByComponent("ocr", "QUOTA_EXCEEDED")
					RecordErrorByType("client_error", "warning")
					RecordErrorByEndpoint("/api/capture", "POST", "client_error")
					RecordErrorLatency("http", "client_error", 12)
					CollectRuntime()
				}, ShouldNotPanic)
			})
		})

		Convey("When collecting runtime figures", func() {
			CollectRuntime()

			Convey("Then goroutines are reported", func() {
				n, ok := gathered(reg, "linewatch_line_system_goroutine_count")
				So(ok, ShouldBeTrue)
				So(n, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the runtime collector's context is already done", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			Convey("Then it returns without error", func() {
				So(RunRuntimeCollector(ctx), ShouldBeNil)
			})
		})
	})
}

func TestDisabledManager(t *testing.T) {
	Convey("Given a disabled global manager", t, func() {
		prev := globalManager
		reg := prometheus.NewRegistry()
		globalManager = NewManager(WithPrometheusRegistry(reg), WithMetricsEnabled(false))
		Reset(func() { globalManager = prev })

		Convey("When recording", func() {
			RecordCaptureRejected()

			Convey("Then nothing is counted", func() {
				v, _ := gathered(reg, "linewatch_line_capture_rejected_total")
				So(v, ShouldEqual, 0)
			})
		})

		Convey("When starting the runtime collector", func() {
			Convey("Then it reports the manager is disabled", func() {
				So(RunRuntimeCollector(context.Background()), ShouldEqual, ErrDisabled)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the global manager", t, func() {
		prevManager, prevRegistry := globalManager, customRegistry
		Reset(func() { globalManager, customRegistry = prevManager, prevRegistry })

		Convey("When it is reconfigured with a namespace and labels", func() {
			Configure(
				WithNamespace("plant"),
				WithSubsystem("line2"),
				WithCustomLabels(map[string]string{"site": "north"}),
			)
			UpdateLogSize(7)

			Convey("Then the fresh registry exposes the renamed metrics", func() {
				So(GetRegistry() != prevRegistry, ShouldBeTrue)
				v, ok := gathered(GetRegistry(), "plant_line2_log_entries")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 7)
			})
		})
	})
}
