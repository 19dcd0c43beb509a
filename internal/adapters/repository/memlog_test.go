package repository_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/linewatch/internal/adapters/repository"
	"github.com/okian/linewatch/internal/domain/model"
	"github.com/okian/linewatch/internal/domain/rate"
	"github.com/okian/linewatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func counterReading(id string, minutes int, bottles int64) model.Reading {
	return model.Reading{
		ID:         id,
		Timestamp:  base.Add(time.Duration(minutes) * time.Minute),
		IsRelevant: true,
		Fields: model.Fields{
			"boxCount":    model.Number(bottles / 24),
			"bottleCount": model.Number(bottles),
		},
		Source: model.SourceCapture,
	}
}

func irrelevantReading(id string, minutes int) model.Reading {
	return model.Reading{
		ID:        id,
		Timestamp: base.Add(time.Duration(minutes) * time.Minute),
		Summary:   "a photo of a desk",
		Source:    model.SourceCapture,
	}
}

func newLog() *repository.MemoryLog {
	_ = logger.Init()
	schema := model.CounterSchema()
	return repository.NewMemoryLog(schema,
		repository.WithCalculator(rate.NewCalculator(rate.WithThreshold(50))),
		repository.WithClock(func() time.Time { return base.Add(24 * time.Hour) }),
	)
}

func TestMemoryLog_Append(t *testing.T) {
	Convey("Given an empty log", t, func() {
		ctx := context.Background()
		log := newLog()

		Convey("When the first relevant reading is appended", func() {
			r, err := log.Append(ctx, counterReading("a", 0, 1000))

			Convey("Then it should have no rate", func() {
				So(err, ShouldBeNil)
				So(r.DerivedRate, ShouldBeNil)
				So(r.Status, ShouldEqual, model.StatusUnknown)
			})
		})

		Convey("When a second relevant reading follows five minutes later", func() {
			_, _ = log.Append(ctx, counterReading("a", 0, 1000))
			r, err := log.Append(ctx, counterReading("b", 5, 1500))

			Convey("Then its rate should be derived from the first", func() {
				So(err, ShouldBeNil)
				So(*r.DerivedRate, ShouldEqual, 100)
				So(r.Status, ShouldEqual, model.StatusNormal)
			})
		})

		Convey("When an irrelevant reading sits between two relevant ones", func() {
			_, _ = log.Append(ctx, counterReading("a", 0, 1000))
			junk, _ := log.Append(ctx, irrelevantReading("x", 2))
			r, _ := log.Append(ctx, counterReading("b", 4, 1100))

			Convey("Then the irrelevant one should have no rate", func() {
				So(junk.DerivedRate, ShouldBeNil)
				So(junk.Status, ShouldEqual, model.StatusUnknown)
			})

			Convey("And the relevant one should skip it", func() {
				So(*r.DerivedRate, ShouldEqual, 25)
				So(r.Status, ShouldEqual, model.StatusSlow)
			})
		})

		Convey("When a backdated reading is appended", func() {
			_, _ = log.Append(ctx, counterReading("a", 10, 1000))
			r, _ := log.Append(ctx, counterReading("b", 5, 900))

			Convey("Then the log should keep insertion order", func() {
				list := log.List(ctx)
				So(len(list), ShouldEqual, 2)
				So(list[0].ID, ShouldEqual, "a")
				So(list[1].ID, ShouldEqual, "b")
			})

			Convey("And the negative time delta should give an unknown rate", func() {
				So(r.DerivedRate, ShouldBeNil)
				So(r.Status, ShouldEqual, model.StatusUnknown)
			})
		})

		Convey("When the same reading is appended twice with fresh ids", func() {
			first := counterReading("", 0, 1000)
			a, _ := log.Append(ctx, first)
			b, _ := log.Append(ctx, first)

			Convey("Then both should be kept", func() {
				So(log.Count(ctx), ShouldEqual, 2)
				So(a.ID, ShouldNotEqual, b.ID)
				So(a.ID, ShouldNotBeEmpty)
			})
		})

		Convey("When a reading has no timestamp or unknown fields", func() {
			r, _ := log.Append(ctx, model.Reading{
				IsRelevant: true,
				Fields:     model.Fields{"bottleCount": model.Number(5), "temperature": model.Number(30)},
			})

			Convey("Then the clock and schema should fill the gaps", func() {
				So(r.Timestamp, ShouldEqual, base.Add(24*time.Hour))
				So(r.Source, ShouldEqual, model.SourceManual)
				_, extra := r.Fields["temperature"]
				So(extra, ShouldBeFalse)
				So(r.Fields["boxCount"].IsNull(), ShouldBeTrue)
			})
		})

		Convey("When an id is reused", func() {
			_, _ = log.Append(ctx, counterReading("a", 0, 1000))
			_, err := log.Append(ctx, counterReading("a", 1, 1100))

			Convey("Then the append should be refused", func() {
				So(err, ShouldNotBeNil)
				So(log.Count(ctx), ShouldEqual, 1)
			})
		})
	})
}

func TestMemoryLog_CorrectField(t *testing.T) {
	Convey("Given a log with several readings", t, func() {
		ctx := context.Background()
		log := newLog()
		_, _ = log.Append(ctx, counterReading("a", 0, 1000))
		_, _ = log.Append(ctx, counterReading("b", 5, 1250))
		_, _ = log.Append(ctx, irrelevantReading("x", 6))
		_, _ = log.Append(ctx, counterReading("c", 10, 1500))
		before := log.List(ctx)

		Convey("When the middle reading's count is corrected", func() {
			r, err := log.CorrectField(ctx, "b", "", 1500)

			Convey("Then only that entry's rate should change", func() {
				So(err, ShouldBeNil)
				So(*r.DerivedRate, ShouldEqual, 100)
				So(r.Status, ShouldEqual, model.StatusNormal)
				So(r.CorrectedAt, ShouldNotBeNil)

				after := log.List(ctx)
				So(after[0], ShouldResemble, before[0])
				So(after[2], ShouldResemble, before[2])
				So(after[3], ShouldResemble, before[3])
				So(*after[3].DerivedRate, ShouldEqual, 50)
			})
		})

		Convey("When the last reading is corrected", func() {
			r, err := log.CorrectField(ctx, "c", "bottleCount", 1260)

			Convey("Then it should use the nearest preceding relevant entry by position", func() {
				So(err, ShouldBeNil)
				So(*r.DerivedRate, ShouldEqual, 2)
				So(r.Status, ShouldEqual, model.StatusSlow)
			})
		})

		Convey("When a later entry follows a backdated one", func() {
			log := newLog()
			_, _ = log.Append(ctx, counterReading("a", 0, 1000))
			_, _ = log.Append(ctx, counterReading("b", 30, 1500))
			c, _ := log.Append(ctx, counterReading("c", 20, 1600))
			_, _ = log.Append(ctx, counterReading("d", 40, 2000))

			r, err := log.CorrectField(ctx, "d", "", 2200)

			Convey("Then it should derive from the previous position, not the latest timestamp", func() {
				So(c.Status, ShouldEqual, model.StatusUnknown)
				So(err, ShouldBeNil)
				So(*r.DerivedRate, ShouldEqual, 30)
				So(r.Status, ShouldEqual, model.StatusSlow)
			})
		})

		Convey("When a correction makes the counter go backwards", func() {
			r, err := log.CorrectField(ctx, "c", "", 1200)

			Convey("Then the rate should become unknown", func() {
				So(err, ShouldBeNil)
				So(r.DerivedRate, ShouldBeNil)
				So(r.Status, ShouldEqual, model.StatusUnknown)
			})
		})

		Convey("When a non-rate numeric field is corrected", func() {
			r, err := log.CorrectField(ctx, "b", "boxCount", 52)

			Convey("Then the field should change and the rate stay as derived", func() {
				So(err, ShouldBeNil)
				box, _ := r.Fields.Int("boxCount")
				So(box, ShouldEqual, 52)
				So(*r.DerivedRate, ShouldEqual, 50)
			})
		})

		Convey("When the value is invalid", func() {
			for _, v := range []float64{-1, 1.5, math.NaN(), math.Inf(1)} {
				_, err := log.CorrectField(ctx, "b", "", v)
				So(errors.Is(err, repository.ErrInvalidValue), ShouldBeTrue)
			}
			So(log.List(ctx), ShouldResemble, before)
		})

		Convey("When the id is unknown", func() {
			_, err := log.CorrectField(ctx, "nope", "", 10)

			Convey("Then it should report not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the field is unknown", func() {
			_, err := log.CorrectField(ctx, "b", "temperature", 10)

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, repository.ErrUnknownField), ShouldBeTrue)
			})
		})
	})
}

func TestMemoryLog_Relevant(t *testing.T) {
	Convey("Given a log mixing relevant and irrelevant readings", t, func() {
		ctx := context.Background()
		log := newLog()
		_, _ = log.Append(ctx, counterReading("a", 0, 1000))
		_, _ = log.Append(ctx, irrelevantReading("x", 1))
		_, _ = log.Append(ctx, counterReading("b", 2, 1100))

		Convey("When ranging over the relevant view", func() {
			view := log.Relevant(ctx)
			var ids []string
			for r := range view {
				ids = append(ids, r.ID)
			}

			Convey("Then irrelevant entries should be skipped", func() {
				So(ids, ShouldResemble, []string{"a", "b"})
			})

			Convey("And ranging again should restart and see new entries", func() {
				_, _ = log.Append(ctx, counterReading("c", 3, 1200))
				var again []string
				for r := range view {
					again = append(again, r.ID)
				}
				So(again, ShouldResemble, []string{"a", "b", "c"})
			})
		})

		Convey("When stopping early", func() {
			var first string
			for r := range log.Relevant(ctx) {
				first = r.ID
				break
			}

			Convey("Then iteration should end cleanly", func() {
				So(first, ShouldEqual, "a")
			})
		})

		Convey("When asking for the last relevant entry", func() {
			r, ok := log.LastRelevant(ctx)

			Convey("Then the most recent relevant one should be returned", func() {
				So(ok, ShouldBeTrue)
				So(r.ID, ShouldEqual, "b")
			})
		})

		Convey("When fetching by id", func() {
			r, err := log.Get(ctx, "x")
			_, missing := log.Get(ctx, "zzz")

			Convey("Then known ids resolve and unknown ones fail", func() {
				So(err, ShouldBeNil)
				So(r.Summary, ShouldEqual, "a photo of a desk")
				So(errors.Is(missing, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
