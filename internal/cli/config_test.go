package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(`
catalog: ./catalog
events: ./events.yaml
ledger: /var/lib/bosync/ledger.db
proposer: init0
approver: init1
tolerance: "0.5"
rate: 20
burst: 5
max_proposal_ops: 100
expiration: 2h
`))
	require.NoError(t, err)
	assert.Equal(t, "./catalog", cfg.Catalog)
	assert.Equal(t, "init0", cfg.Proposer)
	assert.Equal(t, "init1", cfg.Approver)
	assert.Equal(t, "0.5", cfg.Tolerance)
	assert.Equal(t, 20.0, cfg.Rate)
	assert.Equal(t, 5, cfg.Burst)
	assert.Equal(t, 100, cfg.MaxProposalOps)
	assert.Equal(t, 2*time.Hour, cfg.Expiration)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	_, err := LoadConfig(strings.NewReader("catalog: ./catalog\nwitness: init0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "witness")
}

func TestLoadConfigEmpty(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
}

func TestConfigMerge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Proposer = "init2" // given on the command line

	file := Config{Proposer: "init0", Catalog: "./catalog", Rate: 10}
	changed := func(name string) bool { return name == "proposer" }
	cfg.merge(file, changed)

	assert.Equal(t, "init2", cfg.Proposer, "flags win over the file")
	assert.Equal(t, "./catalog", cfg.Catalog)
	assert.Equal(t, 10.0, cfg.Rate)
	assert.Equal(t, "bosync.db", cfg.Ledger, "unset file values keep the defaults")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad tolerance", func(c *Config) { c.Tolerance = "half" }, "tolerance"},
		{"negative tolerance", func(c *Config) { c.Tolerance = "-1" }, "must not be negative"},
		{"negative rate", func(c *Config) { c.Rate = -1 }, "rate"},
		{"negative quota", func(c *Config) { c.MaxProposalOps = -1 }, "max-proposal-ops"},
		{"bad authority", func(c *Config) { c.Authority = "witness-account" }, "authority"},
		{"zero expiration", func(c *Config) { c.Expiration = 0 }, "expiration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigFileThroughCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bosync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog: "+testCatalog+"\n"), 0644))

	out, err := executeCommand(t, "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalog valid")

	require.NoError(t, os.WriteFile(path, []byte("catalgo: ./typo\n"), 0644))
	_, err = executeCommand(t, "validate", "--config", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
