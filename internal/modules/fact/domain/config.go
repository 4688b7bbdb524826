package domain

import (
	apperrors "github.com/reshetovitsme/catfacts-bot/internal/shared/errors"
	"github.com/samber/oops"
)

const (
	DefaultMaxFacts          = 5
	DefaultFactPeriodSeconds = 86400
	DefaultFactChannel       = "#random"
)

// Config is the effective plugin configuration
type Config struct {
	MaxFacts          int    `json:"max_facts"`
	FactPeriodSeconds int    `json:"fact_period_seconds"`
	FactChannel       string `json:"fact_channel"`
}

// Overrides holds user-supplied configuration values. Nil fields keep the default.
type Overrides struct {
	MaxFacts          *int    `json:"max_facts,omitempty"`
	FactPeriodSeconds *int    `json:"fact_period_seconds,omitempty"`
	FactChannel       *string `json:"fact_channel,omitempty"`
}

// DefaultConfig returns the configuration template
func DefaultConfig() Config {
	return Config{
		MaxFacts:          DefaultMaxFacts,
		FactPeriodSeconds: DefaultFactPeriodSeconds,
		FactChannel:       DefaultFactChannel,
	}
}

// Configure overlays o onto the default template
func Configure(o *Overrides) Config {
	cfg := DefaultConfig()
	if o == nil {
		return cfg
	}
	if o.MaxFacts != nil {
		cfg.MaxFacts = *o.MaxFacts
	}
	if o.FactPeriodSeconds != nil {
		cfg.FactPeriodSeconds = *o.FactPeriodSeconds
	}
	if o.FactChannel != nil {
		cfg.FactChannel = *o.FactChannel
	}
	return cfg
}

// Merge returns a copy of o with the fields set in other taking precedence
func (o *Overrides) Merge(other *Overrides) *Overrides {
	merged := &Overrides{}
	for _, src := range []*Overrides{o, other} {
		if src == nil {
			continue
		}
		if src.MaxFacts != nil {
			merged.MaxFacts = src.MaxFacts
		}
		if src.FactPeriodSeconds != nil {
			merged.FactPeriodSeconds = src.FactPeriodSeconds
		}
		if src.FactChannel != nil {
			merged.FactChannel = src.FactChannel
		}
	}
	return merged
}

// IsEmpty reports whether no field is overridden
func (o *Overrides) IsEmpty() bool {
	return o == nil || (o.MaxFacts == nil && o.FactPeriodSeconds == nil && o.FactChannel == nil)
}

// Validate checks the invariants of an effective configuration
func (c Config) Validate() error {
	if c.MaxFacts < 1 {
		return oops.With("max_facts", c.MaxFacts).Wrap(apperrors.ErrInvalidConfig)
	}
	return nil
}

// PollingEnabled reports whether periodic broadcast is on
func (c Config) PollingEnabled() bool {
	return c.FactPeriodSeconds > 0
}
