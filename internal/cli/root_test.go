package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "bosync", cmd.Use)
	assert.Contains(t, cmd.Long, "proposal/approval ledger")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"sync"},
		{"validate"},
		{"grade"},
		{"proposals"},
		{"ledger"},
		{"ledger", "seed"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	defaults := map[string]string{
		"ledger":           "bosync.db",
		"authority":        "1.2.1",
		"tolerance":        "0",
		"rate":             "0",
		"max-proposal-ops": "0",
		"expiration":       "24h0m0s",
		"config":           "",
	}
	for name, want := range defaults {
		t.Run(name, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(name)
			require.NotNil(t, flag)
			assert.Equal(t, want, flag.DefValue)
		})
	}
}

func TestSyncCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	syncCmd, _, err := cmd.Find([]string{"sync"})
	require.NoError(t, err)

	for _, name := range []string{"broadcast", "watch"} {
		flag := syncCmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "false", flag.DefValue)
	}
	require.NotNil(t, syncCmd.Flags().Lookup("metrics-file"))
}

func TestGradeCommandRequiresFlags(t *testing.T) {
	_, err := executeCommand(t, "grade", "--catalog", testCatalog, "--event", "1.22.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "bmg")
}

func TestInvalidFormat(t *testing.T) {
	_, err := executeCommand(t, "validate", "--catalog", testCatalog, "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}
