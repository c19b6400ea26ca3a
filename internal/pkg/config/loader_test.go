package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// LoadEnvString
// ============================================================================

func TestLoadEnvString(t *testing.T) {
	t.Run("with value", func(t *testing.T) {
		t.Setenv("TEST_STRING", "custom_value")
		assert.Equal(t, "custom_value", LoadEnvString("TEST_STRING", "default_value"))
	})

	t.Run("unset", func(t *testing.T) {
		assert.Equal(t, "default_value", LoadEnvString("TEST_STRING_UNSET", "default_value"))
	})

	t.Run("blank uses default", func(t *testing.T) {
		t.Setenv("TEST_STRING", "   ")
		assert.Equal(t, "default_value", LoadEnvString("TEST_STRING", "default_value"))
	})
}

func TestLookupEnvString(t *testing.T) {
	assert.Equal(t, "default", LookupEnvString("TEST_LOOKUP_UNSET", "default"))

	t.Setenv("TEST_LOOKUP", "")
	assert.Equal(t, "", LookupEnvString("TEST_LOOKUP", "default"))

	t.Setenv("TEST_LOOKUP", " value ")
	assert.Equal(t, "value", LookupEnvString("TEST_LOOKUP", "default"))
}

// ============================================================================
// LoadEnvWithFallback
// ============================================================================

func TestLoadEnvWithFallback_ValidSchedule(t *testing.T) {
	t.Setenv("TEST_SCHEDULE", "@every 10m")

	result := LoadEnvWithFallback("TEST_SCHEDULE", "@every 5m", ValidateCronSchedule)

	assert.Equal(t, "@every 10m", result.Value)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvWithFallback_Unset(t *testing.T) {
	result := LoadEnvWithFallback("TEST_SCHEDULE_UNSET", "@every 5m", ValidateCronSchedule)

	assert.Equal(t, "@every 5m", result.Value)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvWithFallback_InvalidSchedule(t *testing.T) {
	t.Setenv("TEST_SCHEDULE", "every five minutes")

	result := LoadEnvWithFallback("TEST_SCHEDULE", "@every 5m", ValidateCronSchedule)

	assert.Equal(t, "@every 5m", result.Value)
	assert.True(t, result.FallbackApplied)
	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Invalid TEST_SCHEDULE='every five minutes'")
	assert.Contains(t, result.Warnings[0], "falling back to default '@every 5m'")
}

func TestLoadEnvWithFallback_NoValidator(t *testing.T) {
	t.Setenv("TEST_ANY", "anything")

	result := LoadEnvWithFallback("TEST_ANY", "default", nil)

	assert.Equal(t, "anything", result.Value)
	assert.False(t, result.FallbackApplied)
}

// ============================================================================
// LoadEnvDuration
// ============================================================================

func TestLoadEnvDuration(t *testing.T) {
	rangeCheck := func(d time.Duration) error { return ValidateDuration(d, time.Second, 5*time.Minute) }

	tests := []struct {
		name         string
		value        string
		want         time.Duration
		wantFallback bool
	}{
		{name: "unset", value: "", want: 30 * time.Second},
		{name: "valid", value: "45s", want: 45 * time.Second},
		{name: "compound", value: "1m30s", want: 90 * time.Second},
		{name: "invalid format", value: "thirty", want: 30 * time.Second, wantFallback: true},
		{name: "missing unit", value: "30", want: 30 * time.Second, wantFallback: true},
		{name: "below range", value: "500ms", want: 30 * time.Second, wantFallback: true},
		{name: "above range", value: "10m", want: 30 * time.Second, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)

			result := LoadEnvDuration("TEST_DURATION", 30*time.Second, rangeCheck)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.wantFallback {
				assert.Len(t, result.Warnings, 1)
			}
		})
	}
}

// atLeastOneSecond mirrors the range checks used by the worker configuration.
func atLeastOneSecond(d time.Duration) error {
	return ValidateDuration(d, time.Second, time.Hour)
}

func TestLoadEnvDuration_ZeroBelowMinimum(t *testing.T) {
	t.Setenv("TEST_DURATION", "0s")

	result := LoadEnvDuration("TEST_DURATION", time.Minute, atLeastOneSecond)

	assert.Equal(t, time.Minute, result.Value)
	assert.True(t, result.FallbackApplied)
	assert.Contains(t, result.Warnings[0], "duration 0s is below minimum 1s")
}

// ============================================================================
// LoadEnvInt
// ============================================================================

func TestLoadEnvInt(t *testing.T) {
	rangeCheck := func(v int) error { return ValidateIntRange(v, 1, 32) }

	tests := []struct {
		name         string
		value        string
		want         int
		wantFallback bool
		wantWarning  string
	}{
		{name: "unset", value: "", want: 4},
		{name: "valid", value: "8", want: 8},
		{name: "padded", value: " 8 ", want: 8},
		{name: "decimal", value: "2.5", want: 4, wantFallback: true, wantWarning: "invalid integer format"},
		{name: "text", value: "many", want: 4, wantFallback: true, wantWarning: "invalid integer format"},
		{name: "below minimum", value: "0", want: 4, wantFallback: true, wantWarning: "below minimum"},
		{name: "above maximum", value: "100", want: 4, wantFallback: true, wantWarning: "exceeds maximum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.value)

			result := LoadEnvInt("TEST_INT", 4, rangeCheck)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.wantWarning != "" {
				assert.Contains(t, result.Warnings[0], tt.wantWarning)
			}
		})
	}
}

// ============================================================================
// LoadEnvBool
// ============================================================================

func TestLoadEnvBool(t *testing.T) {
	tests := []struct {
		value        string
		want         bool
		wantFallback bool
	}{
		{value: "true", want: true},
		{value: "1", want: true},
		{value: "T", want: true},
		{value: "false", want: false},
		{value: "0", want: false},
		{value: "F", want: false},
		{value: "", want: true},
		{value: "yes", want: true, wantFallback: true},
		{value: "off", want: true, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run("value="+tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)

			result := LoadEnvBool("TEST_BOOL", true)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.wantFallback {
				assert.Contains(t, result.Warnings[0], "invalid boolean format")
			}
		})
	}
}

// ============================================================================
// Multiple fallbacks
// ============================================================================

func TestMultipleFallbacks(t *testing.T) {
	t.Setenv("TEST_SCHEDULE", "bogus")
	t.Setenv("TEST_TZ", "Mars/Olympus")
	t.Setenv("TEST_TIMEOUT", "-5s")

	var warnings []string
	schedule := LoadEnvWithFallback("TEST_SCHEDULE", "@every 5m", ValidateCronSchedule)
	warnings = append(warnings, schedule.Warnings...)
	tz := LoadEnvWithFallback("TEST_TZ", "UTC", ValidateTimezone)
	warnings = append(warnings, tz.Warnings...)
	timeout := LoadEnvDuration("TEST_TIMEOUT", 30*time.Second, atLeastOneSecond)
	warnings = append(warnings, timeout.Warnings...)

	assert.Equal(t, "@every 5m", schedule.Value)
	assert.Equal(t, "UTC", tz.Value)
	assert.Equal(t, 30*time.Second, timeout.Value)
	assert.Len(t, warnings, 3)
}
