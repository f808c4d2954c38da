package main

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f, err := parseFlags(nil, io.Discard)
		require.NoError(t, err)
		assert.Empty(t, f.migrate)
		assert.Empty(t, f.operatorToken)
		assert.Equal(t, 24*time.Hour, f.tokenLifetime)
	})

	t.Run("values", func(t *testing.T) {
		f, err := parseFlags([]string{"-migrate", "status", "-operator-token", "ops", "-token-lifetime", "15m"}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "status", f.migrate)
		assert.Equal(t, "ops", f.operatorToken)
		assert.Equal(t, 15*time.Minute, f.tokenLifetime)
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := parseFlags([]string{"-verbose"}, io.Discard)
		assert.Error(t, err)
	})
}
