package repository

import (
	"time"

	"github.com/okian/linewatch/internal/domain/rate"
	"github.com/okian/linewatch/pkg/logger"
)

// Option applies a configuration option to the MemoryLog.
type Option func(*MemoryLog)

// WithCalculator sets the rate calculator used on append and correction.
func WithCalculator(calc *rate.Calculator) Option {
	return func(l *MemoryLog) {
		if calc != nil {
			l.calc = calc
		}
	}
}

// WithClock sets the time source used for missing timestamps and corrections.
func WithClock(now func() time.Time) Option {
	return func(l *MemoryLog) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(l *MemoryLog) {
		if log != nil {
			l.logger = log
		}
	}
}
