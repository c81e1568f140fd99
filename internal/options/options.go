// Package options resolves component options from layered sources.
//
// Values are merged in increasing precedence (compiled-in defaults, then
// persisted configuration, then explicit arguments). Every resolved key is
// checked against its validator once, and the result is decoded into a typed
// struct with mapstructure. Unknown keys and invalid values fail resolution.
package options

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/conneroisu/exhibit/internal/errors"
	"github.com/go-viper/mapstructure/v2"
)

// Values is one layer of raw option values.
type Values map[string]interface{}

// Validator reports whether a raw value is acceptable for its key.
type Validator func(value interface{}) bool

// Resolver holds the defaults and validators for one component type.
type Resolver struct {
	defaults   Values
	validators map[string]Validator
	required   []string
	canonical  map[string]string
}

// NewResolver creates a resolver. Every key that may appear in a layer must
// have a validator; required keys must be present after merging.
func NewResolver(defaults Values, validators map[string]Validator, required ...string) *Resolver {
	r := &Resolver{
		defaults:   defaults,
		validators: validators,
		required:   required,
		canonical:  make(map[string]string, len(validators)),
	}
	for key := range validators {
		r.canonical[normalizeKey(key)] = key
	}
	return r
}

// Merge combines the defaults and layers without validating them.
func (r *Resolver) Merge(layers ...Values) (Values, error) {
	merged := make(Values, len(r.defaults))
	for k, v := range r.defaults {
		merged[k] = v
	}

	for _, layer := range layers {
		for k, v := range layer {
			key, ok := r.canonical[normalizeKey(k)]
			if !ok {
				return nil, errors.NewConfigError(
					errors.ErrCodeInvalidOption,
					fmt.Sprintf("unknown option %q", k),
				).WithContext("option", k)
			}
			merged[key] = v
		}
	}
	return merged, nil
}

// Resolve merges the layers, validates each key and decodes the result
// into out, which must be a pointer to a struct with mapstructure tags.
func (r *Resolver) Resolve(out interface{}, layers ...Values) error {
	merged, err := r.Merge(layers...)
	if err != nil {
		return err
	}

	for _, key := range r.required {
		if v, ok := merged[key]; !ok || v == nil || v == "" {
			return errors.NewConfigError(
				errors.ErrCodeMissingOption,
				fmt.Sprintf("missing required option %q", key),
			).WithContext("option", key)
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := merged[key]
		if value == nil {
			continue
		}
		if validate := r.validators[key]; validate != nil && !validate(value) {
			return errors.ErrOption(key, value)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     out,
		TagName:    "option",
	})
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInternalError, "creating option decoder", err)
	}
	if err := decoder.Decode(map[string]interface{}(merged)); err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidOption, "decoding options").WithCause(err)
	}
	return nil
}

func normalizeKey(key string) string {
	key = strings.ReplaceAll(key, "_", "")
	key = strings.ReplaceAll(key, "-", "")
	return strings.ToLower(key)
}

// Common validators

// String accepts any string.
func String(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

// NonEmptyString accepts strings with at least one non-space character.
func NonEmptyString(v interface{}) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}

// Bool accepts booleans.
func Bool(v interface{}) bool {
	_, ok := v.(bool)
	return ok
}

// Int accepts integers, including integral floats produced by JSON decoding.
func Int(v interface{}) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return true
	case float64:
		return n == math.Trunc(n)
	case float32:
		return float64(n) == math.Trunc(float64(n))
	default:
		return false
	}
}

// Duration accepts time.Duration values and strings time.ParseDuration accepts.
func Duration(v interface{}) bool {
	switch d := v.(type) {
	case time.Duration:
		return d >= 0
	case string:
		parsed, err := time.ParseDuration(d)
		return err == nil && parsed >= 0
	default:
		return false
	}
}

// StringMap accepts maps whose keys and values are all strings.
func StringMap(v interface{}) bool {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return false
	}
	iter := rv.MapRange()
	for iter.Next() {
		val := iter.Value()
		if val.Kind() == reflect.Interface {
			val = val.Elem()
		}
		if val.Kind() != reflect.String {
			return false
		}
	}
	return true
}

// OneOf accepts strings from a fixed set.
func OneOf(allowed ...string) Validator {
	return func(v interface{}) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		for _, a := range allowed {
			if s == a {
				return true
			}
		}
		return false
	}
}

// Any accepts every value.
func Any(interface{}) bool { return true }
