package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestToFields(t *testing.T) {
	now := time.Now()
	err := errors.New("boom")

	tests := []struct {
		name string
		args []any
		keys []string
	}{
		{"empty input", []any{}, nil},
		{"string-int-bool", []any{"a", "x", "b", 123, "c", true}, []string{"a", "b", "c"}},
		{"time and duration", []any{"t", now, "d", time.Second}, []string{"t", "d"}},
		{"bytes", []any{"data", []byte("xyz")}, []string{"data"}},
		{"error only", []any{err}, []string{"error"}},
		{"passthrough field", []any{zap.String("x", "y"), "num", 42}, []string{"x", "num"}},
		{"odd number of args", []any{"key1", "val1", "key2"}, []string{"key1", "arg#2"}},
		{"non-string key", []any{123, "value"}, []string{"invalid_key_1"}},
		{"nil values", []any{"a", nil, "b", (*int)(nil)}, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.args...)
			if len(tt.args) == 0 {
				assert.Nil(t, fields)
				return
			}

			keys := make([]string, 0, len(fields))
			for _, f := range fields {
				keys = append(keys, f.Key)
			}
			assert.Equal(t, tt.keys, keys)
		})
	}
}

func TestSecretsAreRedacted(t *testing.T) {
	fields := toFields("ssid", "home", "password", "hunter2", "PSK", "abc", "api_key", "k")
	require.Len(t, fields, 4)

	assert.Equal(t, "home", fields[0].String)
	for _, f := range fields[1:] {
		assert.Equal(t, redacted, f.String, f.Key)
	}
	assert.True(t, IsSecretKey("Password"))
	assert.False(t, IsSecretKey("ssid"))
}

func TestOptionsValidate(t *testing.T) {
	opts := NewOptions()
	assert.Empty(t, opts.Validate())

	opts.Format = "xml"
	opts.Level = "trace"
	errs := opts.Validate()
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "log.format")
	assert.Contains(t, errs[1].Error(), "log.level")
}

func TestNopLoggerIsSafe(t *testing.T) {
	l := NewNopLogger().WithName("test").WithValues("k", "v")
	l.Info("hello", "n", 1)
	l.Error(errors.New("x"), "failed")
	assert.NoError(t, l.Sync())
}
