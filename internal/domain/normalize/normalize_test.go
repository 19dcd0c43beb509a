package normalize_test

import (
	"errors"
	"testing"

	"github.com/okian/linewatch/internal/domain/model"
	"github.com/okian/linewatch/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStructured(t *testing.T) {
	Convey("Given the counter schema", t, func() {
		schema := model.CounterSchema()

		Convey("When the reply is JSON inside a fenced code block", func() {
			raw := "```json\n{\"isRelevant\":true,\"boxCount\":45,\"bottleCount\":4523,\"summary\":\"counter board\"}\n```"
			out := normalize.Structured(schema, raw)

			Convey("Then the fields should be extracted", func() {
				So(out.OK(), ShouldBeTrue)
				So(out.Record.IsRelevant, ShouldBeTrue)
				box, _ := out.Record.Fields.Int("boxCount")
				bottles, _ := out.Record.Fields.Int("bottleCount")
				So(box, ShouldEqual, 45)
				So(bottles, ShouldEqual, 4523)
				So(out.Record.Summary, ShouldEqual, "counter board")
			})
		})

		Convey("When the reply is bare JSON", func() {
			out := normalize.Structured(schema, `{"isRelevant":true,"boxCount":7,"bottleCount":null}`)

			Convey("Then null fields should stay null", func() {
				So(out.OK(), ShouldBeTrue)
				So(out.Record.Fields["bottleCount"].IsNull(), ShouldBeTrue)
				box, _ := out.Record.Fields.Int("boxCount")
				So(box, ShouldEqual, 7)
			})
		})

		Convey("When the JSON object is surrounded by prose", func() {
			raw := `Sure! Here is what I found: {"isRelevant": true, "bottleCount": "4,523", "summary": "a {curly} label"} Let me know.`
			out := normalize.Structured(schema, raw)

			Convey("Then the first balanced object should be used", func() {
				So(out.OK(), ShouldBeTrue)
				bottles, ok := out.Record.Fields.Int("bottleCount")
				So(ok, ShouldBeTrue)
				So(bottles, ShouldEqual, 4523)
				So(out.Record.Summary, ShouldEqual, "a {curly} label")
			})
		})

		Convey("When fields, isRelevant and summary are missing", func() {
			out := normalize.Structured(schema, `{}`)

			Convey("Then they should take their defaults", func() {
				So(out.OK(), ShouldBeTrue)
				So(out.Record.IsRelevant, ShouldBeFalse)
				So(out.Record.Summary, ShouldEqual, "")
				So(len(out.Record.Fields), ShouldEqual, 2)
				So(out.Record.Fields["boxCount"].IsNull(), ShouldBeTrue)
				So(out.Record.Fields["bottleCount"].IsNull(), ShouldBeTrue)
			})
		})

		Convey("When the reply is not JSON at all", func() {
			out := normalize.Structured(schema, "I see a desk")

			Convey("Then the record should degrade to not relevant", func() {
				So(out.OK(), ShouldBeFalse)
				So(errors.Is(out.Err, normalize.ErrUnparsable), ShouldBeTrue)
				So(out.Record.IsRelevant, ShouldBeFalse)
				So(out.Record.Fields["boxCount"].IsNull(), ShouldBeTrue)
				So(out.Record.Fields["bottleCount"].IsNull(), ShouldBeTrue)
				So(out.Record.Summary, ShouldContainSubstring, "I see a desk")
			})
		})

		Convey("When the reply is a JSON array", func() {
			out := normalize.Structured(schema, `[1,2,3]`)

			Convey("Then it should degrade", func() {
				So(out.OK(), ShouldBeFalse)
				So(out.Record.IsRelevant, ShouldBeFalse)
			})
		})

		Convey("When the reply is truncated JSON", func() {
			out := normalize.Structured(schema, "```json\n{\"isRelevant\":true,\"boxCount\":4")

			Convey("Then it should degrade with the raw text as summary", func() {
				So(out.OK(), ShouldBeFalse)
				So(out.Record.Summary, ShouldContainSubstring, "boxCount")
			})
		})

		Convey("When numeric fields carry unusable values", func() {
			out := normalize.Structured(schema, `{"isRelevant":true,"boxCount":-3,"bottleCount":"about a thousand"}`)

			Convey("Then they should be null", func() {
				So(out.Record.Fields["boxCount"].IsNull(), ShouldBeTrue)
				So(out.Record.Fields["bottleCount"].IsNull(), ShouldBeTrue)
			})
		})

		Convey("When numeric fields are fractional", func() {
			out := normalize.Structured(schema, `{"isRelevant":true,"bottleCount":12.6}`)

			Convey("Then they should be rounded", func() {
				v, _ := out.Record.Fields.Int("bottleCount")
				So(v, ShouldEqual, 13)
			})
		})

		Convey("When isRelevant is a string", func() {
			out := normalize.Structured(schema, `{"isRelevant":"true"}`)

			Convey("Then it should still be understood", func() {
				So(out.Record.IsRelevant, ShouldBeTrue)
			})
		})
	})

	Convey("Given the production schema", t, func() {
		schema := model.ProductionSchema()

		Convey("When the reply mixes text and numeric fields", func() {
			raw := `{"isRelevant":true,"operatingLine":"L3","productionDate":"2026/03/14","plannedQuantity":12000,"productName":"Green Tea 500ml","completedQuantity":"8,420","lotNo":240314,"unrelated":"x"}`
			out := normalize.Structured(schema, raw)

			Convey("Then each field should be coerced to its kind", func() {
				So(out.OK(), ShouldBeTrue)
				line, _ := out.Record.Fields["operatingLine"].Str()
				So(line, ShouldEqual, "L3")
				planned, _ := out.Record.Fields.Int("plannedQuantity")
				So(planned, ShouldEqual, 12000)
				done, _ := out.Record.Fields.Int("completedQuantity")
				So(done, ShouldEqual, 8420)
				lot, _ := out.Record.Fields["lotNo"].Str()
				So(lot, ShouldEqual, "240314")
				_, extra := out.Record.Fields["unrelated"]
				So(extra, ShouldBeFalse)
			})
		})
	})
}

func TestExtract(t *testing.T) {
	Convey("Given free text from a counter photo", t, func() {
		Convey("When a four digit count appears next to a short number", func() {
			v, err := normalize.Extract("The count is 1,234 units on line 2")

			Convey("Then the four digit run should win", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 1234)
			})
		})

		Convey("When several four digit runs appear", func() {
			v, err := normalize.Extract("shift 0815 total 4523")

			Convey("Then the largest should win", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 4523)
			})
		})

		Convey("When only longer and shorter runs exist", func() {
			v, err := normalize.Extract("serial 123456789 and 7")

			Convey("Then the global maximum should be used", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 123456789)
			})
		})

		Convey("When three digit runs are the best available", func() {
			v, err := normalize.Extract("A 12 B 345 C 678901")

			Convey("Then the three digit run should win over longer ones", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 345)
			})
		})

		Convey("When the text has no digits", func() {
			_, err := normalize.Extract("nothing to see")

			Convey("Then no number should be found", func() {
				So(errors.Is(err, normalize.ErrNoNumber), ShouldBeTrue)
			})
		})
	})
}

func TestNumber(t *testing.T) {
	Convey("Given a numeric-only reply", t, func() {
		Convey("When it is a JSON number payload", func() {
			v, err := normalize.Number(`{"number": 4523}`)

			Convey("Then the number should be taken as-is", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 4523)
			})
		})

		Convey("When it is a JSON null payload", func() {
			_, err := normalize.Number(`{"number": null}`)

			Convey("Then no number should be reported", func() {
				So(errors.Is(err, normalize.ErrNoNumber), ShouldBeTrue)
			})
		})

		Convey("When the JSON payload carries an unusable number", func() {
			for _, raw := range []string{`{"number": -5}`, `{"number": "n/a"}`, `{"number": [12]}`} {
				_, err := normalize.Number(raw)
				So(errors.Is(err, normalize.ErrNoNumber), ShouldBeTrue)
			}
		})

		Convey("When the JSON payload carries a separated numeric string", func() {
			v, err := normalize.Number(`{"number": "4,523"}`)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 4523)
		})

		Convey("When it is plain text", func() {
			v, err := normalize.Number("12 345")

			Convey("Then whitespace separated digits should be joined", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 12345)
			})
		})
	})
}
