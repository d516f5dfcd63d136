package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "billing.log")
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	err := Setup(LogConfig{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	l := WithComponent("payments")
	l.Info().Uint("invoice_id", 12).Msg("payment applied")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"payments"`)
	assert.Contains(t, string(data), `"invoice_id":12`)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	err := Setup(LogConfig{Level: "loud"})
	assert.Error(t, err)
}
