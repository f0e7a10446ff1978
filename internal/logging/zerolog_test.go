package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerolog(&buf, "warn", "database")

	logger.Info().Msg("filtered")
	logger.Warn().Str("backend", "sqlite").Msg("falling back")

	out := buf.String()
	assert.NotContains(t, out, "filtered")
	assert.Contains(t, out, `"component":"database"`)
	assert.Contains(t, out, `"backend":"sqlite"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestNewZerolog_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerolog(&buf, "chatty", "influx")

	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
