package feedsim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/okian/linewatch/internal/domain/rate"
	"github.com/okian/linewatch/pkg/logger"
)

// ErrMismatch is returned when a server-derived rate differs from the local derivation.
var ErrMismatch = errors.New("derived rate mismatch")

// anchor is the last relevant entry already in the log before the run.
type anchor struct {
	sample rate.Sample
	ok     bool
}

// expectation is the rate and status the server should have derived.
type expectation struct {
	sub    Submitted
	result rate.Result
}

// latestAnchor reads the log and returns its last relevant counter value.
func latestAnchor(ctx context.Context, client *HTTPClient, schema Schema) (anchor, error) {
	var list struct {
		Readings []Reading `json:"readings"`
	}
	if err := client.Get(ctx, "/api/readings?relevant=true", &list); err != nil {
		return anchor{}, err
	}
	if n := len(list.Readings); n > 0 {
		// a last relevant entry without a value leaves the first rate unknown
		last := list.Readings[n-1]
		if v, ok := fieldValue(last, schema.RateField); ok {
			return anchor{sample: rate.Sample{Value: v, At: last.Timestamp}, ok: true}, nil
		}
	}
	return anchor{}, nil
}

// expectations derives each submitted reading's rate locally, walking the
// feed in log order from the anchor.
func expectations(calc *rate.Calculator, start anchor, subs []Submitted) []expectation {
	prev, havePrev := start.sample, start.ok
	out := make([]expectation, 0, len(subs))
	for _, s := range subs {
		res := rate.Unknown()
		if s.Planned.IsRelevant {
			cur := rate.Sample{Value: s.Planned.Value, At: s.Planned.Timestamp}
			if havePrev {
				res = calc.Calculate(cur, prev)
			}
			prev, havePrev = cur, true
		}
		out = append(out, expectation{sub: s, result: res})
	}
	return out
}

// verifyFeed re-reads every submitted reading concurrently and compares it
// with the local derivation.
func verifyFeed(ctx context.Context, cfg *Config, client *HTTPClient, exps []expectation, stats *Stats) error {
	log := logger.Get().Named("feedsim")
	jobs := make(chan expectation, cfg.Workers*2)
	var (
		mu         sync.Mutex
		mismatches int
		wg         sync.WaitGroup
	)

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range jobs {
				var got Reading
				err := client.Get(ctx, "/api/readings/"+e.sub.Reading.ID, &got)
				mu.Lock()
				if err != nil {
					mismatches++
					log.Warn(ctx, "reading not retrievable", logger.String("id", e.sub.Reading.ID), logger.Error(err))
				} else {
					stats.ReadingsVerified++
					countStatus(stats, got.Status)
					if msg := compare(e.result, got); msg != "" {
						mismatches++
						log.Warn(ctx, "rate mismatch",
							logger.Int("index", e.sub.Planned.Index),
							logger.String("id", got.ID),
							logger.String("detail", msg))
					}
				}
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, e := range exps {
			select {
			case <-ctx.Done():
				return
			case jobs <- e:
			}
		}
	}()
	wg.Wait()

	stats.Mismatches += mismatches
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("verification interrupted: %w", err)
	}
	if mismatches > 0 {
		return fmt.Errorf("%w: %d of %d readings", ErrMismatch, mismatches, len(exps))
	}
	log.Info(ctx, "derived rates verified", logger.Int("readings", stats.ReadingsVerified))
	return nil
}

// compare returns a description of the difference, or "" when they agree.
func compare(want rate.Result, got Reading) string {
	switch {
	case string(want.Status) != got.Status:
		return fmt.Sprintf("status %s, want %s", got.Status, want.Status)
	case want.Rate == nil && got.DerivedRate != nil:
		return fmt.Sprintf("rate %d, want none", *got.DerivedRate)
	case want.Rate != nil && got.DerivedRate == nil:
		return fmt.Sprintf("rate none, want %d", *want.Rate)
	case want.Rate != nil && *want.Rate != *got.DerivedRate:
		return fmt.Sprintf("rate %d, want %d", *got.DerivedRate, *want.Rate)
	}
	return ""
}

// verifyCorrection lifts the first slow reading to the threshold and checks
// that only that entry is re-derived.
func verifyCorrection(ctx context.Context, client *HTTPClient, schema Schema, exps []expectation, stats *Stats) error {
	target, prev, next := -1, -1, -1
	lastRelevant := -1
	for i, e := range exps {
		if !e.sub.Planned.IsRelevant {
			continue
		}
		switch {
		case target < 0 && e.result.Status == statusSlow && lastRelevant >= 0:
			target, prev = i, lastRelevant
		case target >= 0 && next < 0:
			next = i
		}
		lastRelevant = i
	}
	log := logger.Get().Named("feedsim")
	if target < 0 {
		log.Info(ctx, "no slow reading to correct")
		return nil
	}

	p, t := exps[prev].sub.Planned, exps[target].sub.Planned
	minutes := t.Timestamp.Sub(p.Timestamp).Minutes()
	value := p.Value + int64(math.Ceil(float64(schema.NormalThreshold)*minutes))

	var corrected Reading
	err := client.Patch(ctx, "/api/readings/"+exps[target].sub.Reading.ID,
		map[string]any{"field": schema.RateField, "value": value}, &corrected)
	if err != nil {
		return fmt.Errorf("correction: %w", err)
	}
	if corrected.Status != statusNormal || corrected.CorrectedAt == nil {
		return fmt.Errorf("%w: corrected reading is %s", ErrMismatch, corrected.Status)
	}

	if next >= 0 {
		var after Reading
		if err := client.Get(ctx, "/api/readings/"+exps[next].sub.Reading.ID, &after); err != nil {
			return fmt.Errorf("correction: %w", err)
		}
		if msg := compare(exps[next].result, after); msg != "" {
			return fmt.Errorf("%w: entry after the correction changed: %s", ErrMismatch, msg)
		}
	}
	stats.CorrectionChecked = true
	log.Info(ctx, "correction re-derived one entry",
		logger.String("id", corrected.ID),
		logger.Int64("value", value),
		logger.Duration("gap", time.Duration(minutes*float64(time.Minute))))
	return nil
}

func countStatus(stats *Stats, status string) {
	switch status {
	case statusNormal:
		stats.Normal++
	case statusSlow:
		stats.Slow++
	case statusUnknown:
		stats.Unknown++
	}
}

// fieldValue reads a whole-number field from a decoded reading.
func fieldValue(r Reading, field string) (int64, bool) {
	v, ok := r.Fields[field].(float64)
	if !ok || v != math.Trunc(v) {
		return 0, false
	}
	return int64(v), true
}
