// Package parameters handles generic configuration Params, a
// map[string]string parsed from a user-provided config string like
// "batch_size=128,gamma=0.99,checkpoint=/tmp/reversi".
package parameters

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Params represent generic configuration parameters.
type Params map[string]string

// NewFromConfigString creates params from a comma-separated "key=value" list.
// A key without "=" maps to the empty string, which boolean parameters
// interpret as true. See GetParamOr and PopParamOr to parse values.
func NewFromConfigString(config string) Params {
	params := make(Params)
	if config == "" {
		return params
	}
	for _, part := range strings.Split(config, ",") {
		key, value, _ := strings.Cut(part, "=")
		params[key] = value
	}
	return params
}

// PopParamOr is like GetParamOr, but also deletes the retrieved parameter
// from the map. After every component popped its parameters, leftover keys
// are typos the caller can report.
func PopParamOr[T interface {
	bool | int | float32 | float64 | string
}](params Params, key string, defaultValue T) (T, error) {
	value, err := GetParamOr(params, key, defaultValue)
	if err != nil {
		return value, err
	}
	delete(params, key)
	return value, nil
}

// GetParamOr parses the parameter under key to the type of defaultValue, or
// returns defaultValue if the key is absent.
//
// For bool types, a key present without a value is interpreted as true.
func GetParamOr[T interface {
	bool | int | float32 | float64 | string
}](params Params, key string, defaultValue T) (T, error) {
	raw, exists := params[key]
	if !exists {
		return defaultValue, nil
	}
	var t T
	toT := func(v any) T { return v.(T) }
	switch any(defaultValue).(type) {
	case string:
		return toT(raw), nil
	case int:
		if raw == "" {
			return defaultValue, nil
		}
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return t, errors.Wrapf(err, "failed to parse configuration %s=%q to int", key, raw)
		}
		return toT(parsed), nil
	case float32:
		if raw == "" {
			return defaultValue, nil
		}
		parsed, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return t, errors.Wrapf(err, "failed to parse configuration %s=%q to float", key, raw)
		}
		return toT(float32(parsed)), nil
	case float64:
		if raw == "" {
			return defaultValue, nil
		}
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return t, errors.Wrapf(err, "failed to parse configuration %s=%q to float", key, raw)
		}
		return toT(parsed), nil
	case bool:
		switch strings.ToLower(raw) {
		case "", "true", "1":
			return toT(true), nil
		case "false", "0":
			return toT(false), nil
		}
		return defaultValue, errors.Errorf("failed to parse configuration %s=%q to bool", key, raw)
	}
	return defaultValue, nil
}
