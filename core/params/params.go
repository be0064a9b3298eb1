// Package params converts loosely typed hyperparameter values (as they come
// from grids, YAML or gob) into the concrete types estimators store.
package params

import (
	"math"
	"strconv"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// Int accepts any integer type or an integral float64 and enforces v >= min.
func Int(name string, v interface{}, min int) (int, error) {
	var out int
	switch x := v.(type) {
	case int:
		out = x
	case int32:
		out = int(x)
	case int64:
		out = int(x)
	case uint64:
		out = int(x)
	case float64:
		if x != math.Trunc(x) {
			return 0, errors.NewValidationError(name, "must be an integer", v)
		}
		out = int(x)
	default:
		return 0, errors.NewValidationError(name, "must be an integer", v)
	}
	if out < min {
		return 0, errors.NewValidationError(name, "must be >= "+itoa(min), v)
	}
	return out, nil
}

// OptionalInt is Int where nil means "no limit" and maps to 0.
func OptionalInt(name string, v interface{}, min int) (int, error) {
	if v == nil {
		return 0, nil
	}
	return Int(name, v, min)
}

// Uint64 is used for random seeds.
func Uint64(name string, v interface{}) (uint64, error) {
	if u, ok := v.(uint64); ok {
		return u, nil
	}
	i, err := Int(name, v, 0)
	return uint64(i), err
}

// Float accepts float64 or any integer type and enforces v >= min.
func Float(name string, v interface{}, min float64) (float64, error) {
	var out float64
	switch x := v.(type) {
	case float64:
		out = x
	case float32:
		out = float64(x)
	case int:
		out = float64(x)
	case int64:
		out = float64(x)
	default:
		return 0, errors.NewValidationError(name, "must be a number", v)
	}
	if math.IsNaN(out) || out < min {
		return 0, errors.NewValidationError(name, "must be a finite number >= "+ftoa(min), v)
	}
	return out, nil
}

// Bool accepts only bool.
func Bool(name string, v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.NewValidationError(name, "must be a boolean", v)
	}
	return b, nil
}

// MaxFeatures validates a max_features value: nil (all features), a positive
// int, a fraction in (0, 1], "sqrt" or "log2".
func MaxFeatures(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		if x == "sqrt" || x == "log2" {
			return x, nil
		}
	case float64:
		if x > 0 && x <= 1 {
			return x, nil
		}
	default:
		if n, err := Int("max_features", v, 1); err == nil {
			return n, nil
		}
	}
	return nil, errors.NewValidationError("max_features", `must be nil, a positive int, a fraction in (0, 1], "sqrt" or "log2"`, v)
}

// ResolveMaxFeatures turns a validated max_features value into a feature
// count for nFeatures columns, clamped to [1, nFeatures].
func ResolveMaxFeatures(v interface{}, nFeatures int) int {
	k := nFeatures
	switch x := v.(type) {
	case string:
		if x == "sqrt" {
			k = int(math.Sqrt(float64(nFeatures)))
		} else {
			k = int(math.Log2(float64(nFeatures)))
		}
	case float64:
		k = int(x * float64(nFeatures))
	case int:
		k = x
	}
	if k < 1 {
		k = 1
	}
	if k > nFeatures {
		k = nFeatures
	}
	return k
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
