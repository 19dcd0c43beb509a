package feedsim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/linewatch/pkg/logger"
)

// Generate plans a monotonically increasing counter feed. Normal steps run at
// MeanRate plus or minus a tenth; slow steps run at half the threshold.
// Not-relevant entries carry no value and do not advance the counter.
func Generate(ctx context.Context, cfg *Config, schema Schema, base int64) []Planned {
	run := uuid.NewString()[:8]
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	start := cfg.Start
	if start.IsZero() {
		start = time.Now().Add(-time.Duration(cfg.Readings) * cfg.Interval).Truncate(time.Second)
	}
	minutes := cfg.Interval.Minutes()

	out := make([]Planned, 0, cfg.Readings)
	value := base
	for i := 0; i < cfg.Readings; i++ {
		p := Planned{
			Index:     i,
			Timestamp: start.Add(time.Duration(i) * cfg.Interval),
		}
		if cfg.IrrelevantEvery > 0 && i > 0 && i%cfg.IrrelevantEvery == 0 {
			p.Summary = fmt.Sprintf("feedsim %s #%d not a counter", run, i)
			out = append(out, p)
			continue
		}
		if i > 0 {
			value += int64(float64(stepRate(rng, cfg, schema, i)) * minutes)
		}
		p.IsRelevant = true
		p.Value = value
		p.Summary = fmt.Sprintf("feedsim %s #%d", run, i)
		out = append(out, p)
	}

	logger.Get().Info(ctx, "feed planned",
		logger.String("run", run),
		logger.Int("readings", len(out)),
		logger.Int64("from", base),
		logger.Int64("to", value))
	return out
}

func stepRate(rng *rand.Rand, cfg *Config, schema Schema, i int) int64 {
	if cfg.SlowEvery > 0 && i%cfg.SlowEvery == 0 {
		return schema.NormalThreshold / 2
	}
	spread := cfg.MeanRate / jitterDivisor
	if spread == 0 {
		return cfg.MeanRate
	}
	return cfg.MeanRate - spread + rng.Int64N(2*spread+1)
}
