package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/linewatch/internal/config"
	"github.com/okian/linewatch/pkg/logger"
	"github.com/okian/linewatch/pkg/metrics"
)

func TestNewService(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given configuration from the environment", t, func() {
		_ = os.Setenv("LINEWATCH_SCHEMA", "production")
		_ = os.Setenv("LINEWATCH_THRESHOLDS_PRODUCTION", "700")
		_ = os.Setenv("LINEWATCH_MODE", "number")
		defer func() {
			_ = os.Unsetenv("LINEWATCH_SCHEMA")
			_ = os.Unsetenv("LINEWATCH_THRESHOLDS_PRODUCTION")
			_ = os.Unsetenv("LINEWATCH_MODE")
		}()

		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the service is assembled", func() {
			svc, err := newService(cfg, logger.Get())

			convey.Convey("Then it uses the configured schema, threshold and mode", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc.Schema().Name, convey.ShouldEqual, "production")
				convey.So(svc.Schema().NormalThreshold, convey.ShouldEqual, int64(700))
				convey.So(svc.Mode(), convey.ShouldEqual, "number")
				convey.So(svc.GetStats()["recognizer"], convey.ShouldEqual, "gemini")
			})
		})
	})

	convey.Convey("Given a recognizer that cannot be opened", t, func() {
		cfg := config.New()
		cfg.Recognizer = "tesseract"

		convey.Convey("Then the service still starts for manual entry", func() {
			svc, err := newService(cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc, convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given an unknown schema", t, func() {
		cfg := config.New()
		cfg.Schema = "bakery"

		convey.Convey("Then assembly fails", func() {
			_, err := newService(cfg, logger.Get())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestMetricsOptions(t *testing.T) {
	convey.Convey("Given metrics settings for a labelled line", t, func() {
		cfg := config.New()
		cfg.MetricsNamespace = "plant"
		cfg.MetricsSubsystem = "line2"
		cfg.MetricsLabels = map[string]string{"site": "north"}
		reg := prometheus.NewRegistry()

		convey.Convey("When a manager is built from them", func() {
			m := metrics.NewManager(append(metricsOptions(cfg), metrics.WithPrometheusRegistry(reg))...)

			convey.Convey("Then its metrics carry the configured names and labels", func() {
				convey.So(m, convey.ShouldNotBeNil)
				families, err := reg.Gather()
				convey.So(err, convey.ShouldBeNil)
				var site string
				for _, f := range families {
					if f.GetName() != "plant_line2_log_entries" {
						continue
					}
					for _, lp := range f.GetMetric()[0].GetLabel() {
						if lp.GetName() == "site" {
							site = lp.GetValue()
						}
					}
				}
				convey.So(site, convey.ShouldEqual, "north")
			})
		})
	})
}

func TestWriteTimeout(t *testing.T) {
	convey.Convey("Given recognizer timeouts", t, func() {
		cfg := config.New()

		convey.Convey("Then a bounded recognizer gets slack on top", func() {
			convey.So(writeTimeout(cfg), convey.ShouldEqual, 45*time.Second)
		})

		convey.Convey("Then an unbounded recognizer leaves the write unbounded", func() {
			cfg.RecognizerTimeoutSeconds = 0
			convey.So(writeTimeout(cfg), convey.ShouldEqual, time.Duration(0))
		})
	})
}

func TestNewMux(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given the assembled mux", t, func() {
		ctx := context.Background()
		cfg := config.New()
		svc, err := newService(cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		mux := newMux(ctx, cfg, svc)

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			return w
		}

		convey.Convey("Then every surface is routed", func() {
			for _, path := range []string{"/", "/dashboard", "/api-docs", "/openapi.yaml", "/stats", "/healthz", "/api/schema", "/api/readings"} {
				convey.So(get(path).Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then a truncated photo is rejected before recognition", func() {
			w := httptest.NewRecorder()
			body := strings.NewReader(`{"image":"data:image/png;base64,iVBORw0KGgo="}`)
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/capture", body))
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "INVALID_REQUEST")
		})
	})
}
