package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	assert.EqualValues(t, 300, cfg.ReliableInitTimeoutFrames)
	assert.EqualValues(t, 300, cfg.GhostTimeoutFrames)
	assert.Equal(t, 3, cfg.BreakerFailureThreshold)
}

func TestBindFlagsOverridesField(t *testing.T) {
	cfg := Default()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.BindFlags(flags)

	require.NoError(t, flags.Parse([]string{"--reliable-init-timeout-frames=42", "--ghost-timeout-frames=7"}))
	assert.EqualValues(t, 42, cfg.ReliableInitTimeoutFrames)
	assert.EqualValues(t, 7, cfg.GhostTimeoutFrames)
}
