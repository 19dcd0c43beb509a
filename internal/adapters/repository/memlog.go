package repository

import (
	"context"
	"fmt"
	"iter"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/linewatch/internal/domain/model"
	"github.com/okian/linewatch/internal/domain/rate"
	"github.com/okian/linewatch/pkg/logger"
	"github.com/okian/linewatch/pkg/metrics"
)

// MemoryLog is the in-memory Log. Entries live for the lifetime of the
// process.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []model.Reading
	index   map[string]int

	schema model.Schema
	calc   *rate.Calculator
	now    func() time.Time
	logger logger.Logger
}

// NewMemoryLog creates an empty log for the given schema.
func NewMemoryLog(schema model.Schema, opts ...Option) *MemoryLog {
	l := &MemoryLog{
		index:  make(map[string]int),
		schema: schema,
		calc:   rate.NewCalculator(rate.WithThreshold(schema.NormalThreshold)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("log")
	}
	return l
}

// Append implements Log.
func (l *MemoryLog) Append(ctx context.Context, r model.Reading) (model.Reading, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency("append", float64(time.Since(start).Microseconds())/1000.0)
	}()

	r = r.Clone()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = l.now()
	}
	if r.Source == "" {
		r.Source = model.SourceManual
	}
	r.Fields = l.conform(r.Fields)

	l.mu.Lock()
	if _, exists := l.index[r.ID]; exists {
		l.mu.Unlock()
		return model.Reading{}, fmt.Errorf("append reading %s: duplicate id", r.ID)
	}
	l.apply(&r, l.derive(len(l.entries), r))
	l.entries = append(l.entries, r)
	l.index[r.ID] = len(l.entries) - 1
	size := len(l.entries)
	out := r.Clone()
	l.mu.Unlock()

	metrics.RecordReadingAppended(string(out.Source), out.IsRelevant)
	metrics.RecordReadingStatus(string(out.Status))
	metrics.UpdateLogSize(size)
	if out.DerivedRate != nil {
		metrics.UpdateLastRate(*out.DerivedRate)
	}
	l.logger.Debug(ctx, "reading appended",
		logger.String("id", out.ID),
		logger.Bool("relevant", out.IsRelevant),
		logger.String("status", string(out.Status)),
		logger.Int("position", size-1),
	)
	return out, nil
}

// CorrectField implements Log. Later entries keep the rates they were
// derived with.
func (l *MemoryLog) CorrectField(ctx context.Context, id, field string, value float64) (model.Reading, error) {
	if field == "" {
		field = l.schema.RateField
	}
	spec, ok := l.schema.Field(field)
	if !ok || spec.Kind != model.KindNumber {
		return model.Reading{}, fmt.Errorf("correct %q: %w", field, ErrUnknownField)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value != math.Trunc(value) || value > math.MaxInt64/2 {
		return model.Reading{}, fmt.Errorf("correct %q to %v: %w", field, value, ErrInvalidValue)
	}

	l.mu.Lock()
	pos, ok := l.index[id]
	if !ok {
		l.mu.Unlock()
		return model.Reading{}, fmt.Errorf("correct reading %s: %w", id, ErrNotFound)
	}
	r := l.entries[pos].Clone()
	previous := r.Fields[field]
	r.Fields[field] = model.Number(int64(value))
	at := l.now()
	r.CorrectedAt = &at
	l.apply(&r, l.derive(pos, r))
	l.entries[pos] = r
	out := r.Clone()
	l.mu.Unlock()

	metrics.RecordCorrection(field)
	metrics.RecordReadingStatus(string(out.Status))
	l.logger.Info(ctx, "reading corrected",
		logger.String("id", id),
		logger.String("field", field),
		logger.String("from", previous.String()),
		logger.Int64("to", int64(value)),
		logger.String("status", string(out.Status)),
	)
	return out, nil
}

// Get implements Log.
func (l *MemoryLog) Get(_ context.Context, id string) (model.Reading, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.index[id]
	if !ok {
		return model.Reading{}, fmt.Errorf("get reading %s: %w", id, ErrNotFound)
	}
	return l.entries[pos].Clone(), nil
}

// List implements Log.
func (l *MemoryLog) List(_ context.Context) []model.Reading {
	return l.snapshot()
}

// Relevant implements Log. Each range over the returned sequence walks a
// snapshot taken when that range starts.
func (l *MemoryLog) Relevant(_ context.Context) iter.Seq[model.Reading] {
	return func(yield func(model.Reading) bool) {
		for _, r := range l.snapshot() {
			if !r.IsRelevant {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// LastRelevant implements Log.
func (l *MemoryLog) LastRelevant(_ context.Context) (model.Reading, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].IsRelevant {
			return l.entries[i].Clone(), true
		}
	}
	return model.Reading{}, false
}

// Count implements Log.
func (l *MemoryLog) Count(_ context.Context) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Schema returns the field schema the log was created with.
func (l *MemoryLog) Schema() model.Schema { return l.schema }

func (l *MemoryLog) snapshot() []model.Reading {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Reading, len(l.entries))
	for i, r := range l.entries {
		out[i] = r.Clone()
	}
	return out
}

// derive computes the rate for r as if it sat at position pos, against the
// nearest relevant entry before pos. Caller holds mu.
func (l *MemoryLog) derive(pos int, r model.Reading) rate.Result {
	if !r.IsRelevant {
		return rate.Unknown()
	}
	cur, ok := r.Fields.Int(l.schema.RateField)
	if !ok {
		return rate.Unknown()
	}
	for j := pos - 1; j >= 0; j-- {
		prev := l.entries[j]
		if !prev.IsRelevant {
			continue
		}
		prevValue, ok := prev.Fields.Int(l.schema.RateField)
		if !ok {
			return rate.Unknown()
		}
		return l.calc.Calculate(
			rate.Sample{Value: cur, At: r.Timestamp},
			rate.Sample{Value: prevValue, At: prev.Timestamp},
		)
	}
	return rate.Unknown()
}

func (l *MemoryLog) apply(r *model.Reading, res rate.Result) {
	r.DerivedRate = res.Rate
	r.Status = res.Status
}

// conform keeps exactly the schema's fields, null where missing.
func (l *MemoryLog) conform(fields model.Fields) model.Fields {
	out := l.schema.EmptyFields()
	for name := range out {
		if v, ok := fields[name]; ok {
			out[name] = v
		}
	}
	return out
}
