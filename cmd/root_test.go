package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"sync", "validate", "status", "migrate", "import"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "hoopsync", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestSyncCommand_Flags(t *testing.T) {
	for _, name := range []string{"stages", "season", "force", "workers"} {
		require.NotNil(t, syncCmd.Flags().Lookup(name), "sync command should have --%s flag", name)
	}
}

func TestValidateCommand_Flags(t *testing.T) {
	for _, name := range []string{"season", "categories", "check-id", "fix", "output"} {
		require.NotNil(t, validateCmd.Flags().Lookup(name), "validate command should have --%s flag", name)
	}
	assert.Equal(t, "human", validateCmd.Flags().Lookup("output").DefValue)
}

func TestStatusCommand_Flags(t *testing.T) {
	require.NotNil(t, statusCmd.Flags().Lookup("season"))
}
