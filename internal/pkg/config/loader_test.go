package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvString(t *testing.T) {
	t.Setenv("LOADER_TEST_STR", "from-env")
	assert.Equal(t, "from-env", LoadEnvString("LOADER_TEST_STR", "def"))
	assert.Equal(t, "def", LoadEnvString("LOADER_TEST_STR_UNSET", "def"))
}

func TestLoadEnvStringWithFallback(t *testing.T) {
	rejectAll := func(string) error { return errors.New("rejected") }

	t.Run("unset uses default without warning", func(t *testing.T) {
		res := LoadEnvStringWithFallback("LOADER_TEST_UNSET", "def", rejectAll)
		assert.Equal(t, "def", res.Value)
		assert.False(t, res.FallbackApplied)
	})

	t.Run("invalid value falls back with warning", func(t *testing.T) {
		t.Setenv("LOADER_TEST_BAD", "whatever")
		res := LoadEnvStringWithFallback("LOADER_TEST_BAD", "def", rejectAll)
		assert.Equal(t, "def", res.Value)
		assert.True(t, res.FallbackApplied)
		assert.Contains(t, res.Warning, "LOADER_TEST_BAD")
	})

	t.Run("valid value passes through", func(t *testing.T) {
		t.Setenv("LOADER_TEST_GOOD", "fine")
		res := LoadEnvStringWithFallback("LOADER_TEST_GOOD", "def", nil)
		assert.Equal(t, "fine", res.Value)
		assert.False(t, res.FallbackApplied)
	})
}

func TestLoadEnvDuration(t *testing.T) {
	t.Setenv("LOADER_TEST_DUR", "90s")
	res := LoadEnvDuration("LOADER_TEST_DUR", time.Minute, ValidatePositiveDuration)
	assert.Equal(t, 90*time.Second, res.Value)

	t.Setenv("LOADER_TEST_DUR_BAD", "ninety seconds")
	res = LoadEnvDuration("LOADER_TEST_DUR_BAD", time.Minute, nil)
	assert.Equal(t, time.Minute, res.Value)
	assert.True(t, res.FallbackApplied)

	t.Setenv("LOADER_TEST_DUR_NEG", "-5s")
	res = LoadEnvDuration("LOADER_TEST_DUR_NEG", time.Minute, ValidatePositiveDuration)
	assert.Equal(t, time.Minute, res.Value)
	assert.True(t, res.FallbackApplied)
}

func TestLoadEnvInt(t *testing.T) {
	t.Setenv("LOADER_TEST_INT", "42")
	res := LoadEnvInt("LOADER_TEST_INT", 7, nil)
	assert.Equal(t, 42, res.Value)

	t.Setenv("LOADER_TEST_INT_BAD", "4.2")
	res = LoadEnvInt("LOADER_TEST_INT_BAD", 7, nil)
	assert.Equal(t, 7, res.Value)
	assert.True(t, res.FallbackApplied)

	t.Setenv("LOADER_TEST_INT_RANGE", "9999")
	res = LoadEnvInt("LOADER_TEST_INT_RANGE", 7, func(v int) error {
		return ValidateIntRange(v, 1, 100)
	})
	assert.Equal(t, 7, res.Value)
	assert.True(t, res.FallbackApplied)
}

func TestLoadEnvBool(t *testing.T) {
	t.Setenv("LOADER_TEST_BOOL", "true")
	assert.True(t, LoadEnvBool("LOADER_TEST_BOOL", false).Value)

	t.Setenv("LOADER_TEST_BOOL_BAD", "yes")
	res := LoadEnvBool("LOADER_TEST_BOOL_BAD", true)
	assert.True(t, res.Value)
	assert.True(t, res.FallbackApplied)
}

func TestLoadEnvStringSlice(t *testing.T) {
	t.Setenv("LOADER_TEST_SLICE", "@a, @b ,,@c")
	assert.Equal(t, []string{"@a", "@b", "@c"}, LoadEnvStringSlice("LOADER_TEST_SLICE", nil))

	assert.Equal(t, []string{"@def"}, LoadEnvStringSlice("LOADER_TEST_SLICE_UNSET", []string{"@def"}))

	t.Setenv("LOADER_TEST_SLICE_BLANK", " , ,")
	assert.Equal(t, []string{"@def"}, LoadEnvStringSlice("LOADER_TEST_SLICE_BLANK", []string{"@def"}))
}
