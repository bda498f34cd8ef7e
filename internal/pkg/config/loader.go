// Package config provides typed environment-variable loaders with
// validate-and-fall-back semantics. Loading never fails: an unset variable
// yields the default silently, an invalid one yields the default with a
// warning the caller is expected to log.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of loading one configuration value. When
// FallbackApplied is true the environment held an invalid value, Warning
// describes it and Value carries the default.
type Result[T any] struct {
	Value           T
	Warning         string
	FallbackApplied bool
}

func ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func fallback[T any](key, raw string, cause error, def T) Result[T] {
	return Result[T]{
		Value:           def,
		Warning:         fmt.Sprintf("invalid %s=%q: %v, falling back to default %v", key, raw, cause, def),
		FallbackApplied: true,
	}
}

// LoadEnvString returns the environment variable value, or the default when
// the variable is unset or empty. No validation is applied.
func LoadEnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// LoadEnvStringWithFallback loads a string and runs it through the validator.
// A nil validator accepts everything.
func LoadEnvStringWithFallback(key, def string, validator func(string) error) Result[string] {
	v := os.Getenv(key)
	if v == "" {
		return ok(def)
	}
	if validator != nil {
		if err := validator(v); err != nil {
			return fallback(key, v, err, def)
		}
	}
	return ok(v)
}

// LoadEnvDuration loads a Go duration string ("30s", "5m", "1h30m").
func LoadEnvDuration(key string, def time.Duration, validator func(time.Duration) error) Result[time.Duration] {
	raw := os.Getenv(key)
	if raw == "" {
		return ok(def)
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback(key, raw, err, def)
	}
	if validator != nil {
		if err := validator(d); err != nil {
			return fallback(key, raw, err, def)
		}
	}
	return ok(d)
}

// LoadEnvInt loads a base-10 integer.
func LoadEnvInt(key string, def int, validator func(int) error) Result[int] {
	raw := os.Getenv(key)
	if raw == "" {
		return ok(def)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback(key, raw, err, def)
	}
	if validator != nil {
		if err := validator(n); err != nil {
			return fallback(key, raw, err, def)
		}
	}
	return ok(n)
}

// LoadEnvBool loads a boolean. Accepts the strconv.ParseBool forms
// ("1", "t", "true", "0", "f", "false", case-insensitive for the words).
func LoadEnvBool(key string, def bool) Result[bool] {
	raw := os.Getenv(key)
	if raw == "" {
		return ok(def)
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback(key, raw, err, def)
	}
	return ok(b)
}

// LoadEnvStringSlice loads a comma-separated list, trimming whitespace around
// each element and dropping empty elements. An unset or empty variable yields
// the default slice.
func LoadEnvStringSlice(key string, def []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
