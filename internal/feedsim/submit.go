package feedsim

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/linewatch/pkg/logger"
)

// submitFeed posts planned readings in order. The log derives each rate from
// the entry before it, so submission is sequential.
func submitFeed(ctx context.Context, cfg *Config, client *HTTPClient, schema Schema, feed []Planned, stats *Stats) ([]Submitted, error) {
	log := logger.Get().Named("feedsim")
	out := make([]Submitted, 0, len(feed))
	for _, p := range feed {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("submission interrupted: %w", err)
		}
		req := manualRequest{
			Timestamp:  p.Timestamp.Format(time.RFC3339),
			IsRelevant: p.IsRelevant,
			Fields:     map[string]any{},
			Summary:    p.Summary,
		}
		if p.IsRelevant {
			req.Fields[schema.RateField] = p.Value
		}

		var r Reading
		err := client.Post(ctx, "/api/readings", req, &r)
		stats.ReadingsSubmitted++
		if err != nil {
			stats.ReadingsFailed++
			log.Warn(ctx, "reading rejected", logger.Int("index", p.Index), logger.Error(err))
			continue
		}
		out = append(out, Submitted{Planned: p, Reading: r})
		if cfg.Verbose {
			fields := []logger.Field{
				logger.Int("index", p.Index),
				logger.String("id", r.ID),
				logger.String("status", r.Status),
			}
			if r.DerivedRate != nil {
				fields = append(fields, logger.Int64("rate", *r.DerivedRate))
			}
			log.Debug(ctx, "reading submitted", fields...)
		}
	}
	log.Info(ctx, "feed submitted",
		logger.Int("submitted", stats.ReadingsSubmitted),
		logger.Int("failed", stats.ReadingsFailed))
	return out, nil
}
