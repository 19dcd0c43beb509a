package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "LINEWATCH_"
	envConfigPath = envPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if LINEWATCH_CONFIG is set
//  3. env (prefix LINEWATCH_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// LINEWATCH_MAX_IMAGE_BYTES -> max_image_bytes (flat keys).
	// LINEWATCH_THRESHOLDS_COUNTER -> thresholds.counter.
	// LINEWATCH_METRICS_LABELS_SITE -> metrics_labels.site.
	envProvider := env.Provider(envPrefix, ".", envKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	cfg.Thresholds = make(map[string]int64, len(base.Thresholds))
	for name, v := range base.Thresholds {
		cfg.Thresholds[name] = v
	}
	cfg.MetricsLabels = make(map[string]string, len(base.MetricsLabels))
	for name, v := range base.MetricsLabels {
		cfg.MetricsLabels[name] = v
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if rest, ok := strings.CutPrefix(s, "thresholds_"); ok {
		return "thresholds." + rest
	}
	if rest, ok := strings.CutPrefix(s, "metrics_labels_"); ok {
		return "metrics_labels." + rest
	}
	return s
}
