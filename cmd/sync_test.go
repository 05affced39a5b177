package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoopsight/hoopsync/internal/config"
)

func TestParseSyncFlags(t *testing.T) {
	cfg = &config.Config{Sync: config.SyncConfig{Workers: 6}}

	cmd := syncCmd
	t.Cleanup(func() {
		_ = cmd.Flags().Set("stages", "")
		_ = cmd.Flags().Set("season", "")
		_ = cmd.Flags().Set("force", "false")
		_ = cmd.Flags().Set("workers", "0")
	})

	require.NoError(t, cmd.Flags().Set("stages", "schedule, gamestates"))
	require.NoError(t, cmd.Flags().Set("season", "2023-2024"))
	require.NoError(t, cmd.Flags().Set("force", "true"))

	stages, opts := parseSyncFlags(cmd)
	assert.Equal(t, []string{"schedule", "gamestates"}, stages)
	assert.Equal(t, "2023-2024", opts.Season)
	assert.True(t, opts.Force)
	// Unset --workers falls back to the configured value.
	assert.Equal(t, 6, opts.Workers)

	require.NoError(t, cmd.Flags().Set("workers", "2"))
	_, opts = parseSyncFlags(cmd)
	assert.Equal(t, 2, opts.Workers)
}
