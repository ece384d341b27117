package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARNING": zerolog.WarnLevel,
		" error ": zerolog.ErrorLevel,
		"silent":  zerolog.Disabled,
		"bogus":   zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetup_ComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, "info", "json")
	t.Cleanup(func() { Setup(nil, "warn", "json") })

	log := NewLogger("resolver")
	log.Debug().Msg("hidden")
	log.Info().Str("page_id", "p1").Msg("resolved")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "resolver", entry["component"])
	assert.Equal(t, "p1", entry["page_id"])
	assert.Equal(t, "resolved", entry["message"])
}

func TestSub(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug").Sub("ledger")
	log.Warn().Msg("unpriced")
	assert.Contains(t, buf.String(), `"component":"ledger"`)

	buf.Reset()
	Nop().Error().Msg("nothing")
	assert.Empty(t, buf.String())
}
