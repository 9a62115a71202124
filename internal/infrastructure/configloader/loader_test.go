package configloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "server:\n  port: \"9090\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10*time.Second, cfg.Poller.FastInterval())
	assert.Equal(t, 50*time.Second, cfg.Poller.APIInterval())
	assert.Equal(t, 5*time.Minute, cfg.Poller.SlowInterval())
	assert.Equal(t, 30*time.Second, cfg.Poller.FetchTimeout())
	assert.Equal(t, "data/farms", cfg.Registry.Dir)
	assert.Equal(t, 100, cfg.RpcClient.MaxBatchSize)
	assert.Equal(t, "docs/swagger.yaml", cfg.Swagger.Path)
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
poller:
  slowIntervalMs: 60000
session:
  chainId: 56
  account: "0x000000000000000000000000000000000000dEaD"
  flag: api
networks:
  - chainID: 56
    name: BNB Smart Chain
    endpoint: https://bsc.example
    masterChefAddress: "0x73feaa1eE314F8c655E354234017bE2193C9E24E"
`))
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Poller.SlowInterval())
	assert.Equal(t, uint64(56), cfg.Session.ChainID)
	assert.Equal(t, "api", cfg.Session.Flag)
	require.Len(t, cfg.Networks, 1)
	assert.Equal(t, "https://bsc.example", cfg.Networks[0].Endpoint)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing chain id", "networks:\n  - name: x\n"},
		{"duplicate chain id", "networks:\n  - chainID: 56\n  - chainID: 56\n"},
		{"bad masterchef", "networks:\n  - chainID: 56\n    masterChefAddress: nope\n"},
		{"bad account", "session:\n  account: 0xABC\n"},
		{"bad yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
