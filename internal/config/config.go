// Package config holds the named-option mappings consumed by the loss,
// activation and optimizer factories, and the YAML file format that
// describes a stack of layers.
package config

import (
	"errors"
	"fmt"
	"math"
)

// ErrConfiguration reports a missing or invalid option or hyperparameter.
var ErrConfiguration = errors.New("config: invalid configuration")

// TypeKey is the option that selects a variant in every factory.
const TypeKey = "type"

// Params is a mapping of named options.
//
// Every factory reads the required "type" key and any variant specific
// numeric hyperparameters (for example "dHuber" or "learn_rate").
//
// Example:
//
//	loss, err := nn.NewLoss(config.Params{"type": "huber", "dHuber": 1.5})
type Params map[string]any

// Type returns the required "type" option.
func (p Params) Type() (string, error) {
	v, ok := p[TypeKey]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrConfiguration, TypeKey)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %q must be a non-empty string, got %v", ErrConfiguration, TypeKey, v)
	}
	return s, nil
}

// Float returns a required numeric option.
func (p Params) Float(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrConfiguration, key)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("%w: %q must be a finite number, got %v", ErrConfiguration, key, v)
	}
	return f, nil
}

// FloatOr returns an optional numeric option, or def when the key is absent.
// A present but non-numeric value is still an error.
func (p Params) FloatOr(key string, def float64) (float64, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	return p.Float(key)
}

// Positive returns a required option that must be > 0.
func (p Params) Positive(key string) (float64, error) {
	f, err := p.Float(key)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("%w: %q must be > 0, got %g", ErrConfiguration, key, f)
	}
	return f, nil
}

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
