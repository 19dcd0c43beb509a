// Package rate derives per-minute throughput between two counter readings
// and classifies it against a normal-running threshold.
package rate

import (
	"math"
	"time"

	"github.com/okian/linewatch/internal/domain/model"
)

// Default calculator configuration constants.
const (
	defaultWindow    = 60 * time.Minute
	defaultThreshold = 50
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithThreshold sets the rate at or above which status is normal.
func WithThreshold(threshold int64) Option {
	return func(c *Calculator) {
		if threshold >= 0 {
			c.threshold = threshold
		}
	}
}

// WithWindow sets the largest gap between readings a rate is derived over.
func WithWindow(window time.Duration) Option {
	return func(c *Calculator) {
		if window > 0 {
			c.window = window
		}
	}
}

// Sample is a counter value at a point in time.
type Sample struct {
	Value int64
	At    time.Time
}

// Result is a derived rate. Rate is nil when no rate can be derived, in which
// case Status is unknown.
type Result struct {
	Rate   *int64
	Status model.Status
}

// Unknown is the result for readings with no usable predecessor.
func Unknown() Result {
	return Result{Status: model.StatusUnknown}
}

// Calculator derives rates. It holds no state between calls.
type Calculator struct {
	threshold int64
	window    time.Duration
}

// NewCalculator creates a calculator with configuration options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		threshold: defaultThreshold,
		window:    defaultWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Threshold returns the configured normal threshold.
func (c *Calculator) Threshold() int64 { return c.threshold }

// Window returns the configured window.
func (c *Calculator) Window() time.Duration { return c.window }

// Calculate derives units per minute from prev to cur. The gap must lie in
// (0, window] and the counter must not have gone backwards.
func (c *Calculator) Calculate(cur, prev Sample) Result {
	deltaMinutes := float64(cur.At.Sub(prev.At).Milliseconds()) / float64(time.Minute.Milliseconds())
	if deltaMinutes <= 0 || deltaMinutes > c.window.Minutes() {
		return Unknown()
	}
	delta := cur.Value - prev.Value
	if delta < 0 {
		return Unknown()
	}

	q := math.Round(float64(delta) / deltaMinutes)
	var r int64
	switch {
	case q >= math.MaxInt64:
		r = math.MaxInt64
	case q > 0:
		r = int64(q)
	}
	return Result{Rate: &r, Status: c.Classify(r)}
}

// Classify maps a rate to normal or slow.
func (c *Calculator) Classify(r int64) model.Status {
	if r >= c.threshold {
		return model.StatusNormal
	}
	return model.StatusSlow
}
