package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/linewatch/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Schema, convey.ShouldEqual, "counter")
			convey.So(cfg.Mode, convey.ShouldEqual, config.ModeStructured)
			convey.So(cfg.Recognizer, convey.ShouldEqual, config.RecognizerGemini)
			convey.So(cfg.RateWindow(), convey.ShouldEqual, time.Hour)
			convey.So(cfg.RecognizerTimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then each schema has a threshold", func() {
			c, ok := cfg.Threshold("counter")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(c, convey.ShouldEqual, 50)
			p, ok := cfg.Threshold("production")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(p, convey.ShouldEqual, 600)
			_, ok = cfg.Threshold("unknown")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad field", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":          func(c *config.Config) { c.Addr = "" },
			"unknown schema":      func(c *config.Config) { c.Schema = "pallets" },
			"unknown mode":        func(c *config.Config) { c.Mode = "fuzzy" },
			"zero window":         func(c *config.Config) { c.RateWindowMinutes = 0 },
			"offset out of range": func(c *config.Config) { c.TimezoneOffsetMinutes = 15 * 60 },
			"zero image bytes":    func(c *config.Config) { c.MaxImageBytes = 0 },
			"zero dimension":      func(c *config.Config) { c.MaxImageDimension = 0 },
			"quality too high":    func(c *config.Config) { c.JPEGQuality = 101 },
			"negative cache":      func(c *config.Config) { c.ImageCacheSize = -1 },
			"negative timeout":    func(c *config.Config) { c.RecognizerTimeoutSeconds = -1 },
			"negative threshold":  func(c *config.Config) { c.Thresholds["counter"] = -1 },
			"unknown recognizer":  func(c *config.Config) { c.Recognizer = "abacus" },
			"proxy without url":   func(c *config.Config) { c.Recognizer = config.RecognizerProxy },
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)

			convey.Convey("Then validation rejects "+name, func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("Then a zero recognizer timeout leaves the call unbounded", func() {
			cfg := config.New()
			cfg.RecognizerTimeoutSeconds = 0
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(cfg.RecognizerTimeout(), convey.ShouldEqual, time.Duration(0))
		})

		convey.Convey("Then a proxy recognizer with a url is accepted", func() {
			cfg := config.New()
			cfg.Recognizer = config.RecognizerProxy
			cfg.ProxyURL = "http://ocr.local:9080"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
