package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogCapture_Contains(t *testing.T) {
	logger, logs := NewCapturingLogger(t)
	logger.Info("checkpoint complete", "entries", 3)
	logger.Debug("wal append", "key", "a")

	assert.True(t, logs.Contains("level=INFO", "checkpoint complete", "entries=3"))
	assert.True(t, logs.Contains("wal append", "key=a"))
	assert.False(t, logs.Contains("checkpoint complete", "key=a"), "parts must match on one line")
	assert.False(t, logs.Contains(), "no parts matches nothing")
}
