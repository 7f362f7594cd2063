package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8545", cfg.Chain.RPCURL)
	assert.Equal(t, uint64(5000), cfg.Chain.PageSize)
	assert.Equal(t, 1000, cfg.Retry.InitialMs)
	assert.Equal(t, 5.0, cfg.Retry.Factor)
	assert.Equal(t, "data_out", cfg.App.DataDir)
	assert.False(t, cfg.Telegram.Enabled())

	_, err = cfg.Chain.HostContract()
	assert.Error(t, err)
}

func TestLoadConfigYAMLEnvAndFlags(t *testing.T) {
	dir := chdirTemp(t)

	yaml := []byte(`chain:
  host_address: "0x00000000000000000000000000000000000000aa"
  page_size: 100
retry:
  factor: 2
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0644))
	t.Setenv("POLL_INTERVAL", "3")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--chain.page_size=250"}))

	cfg, err := LoadConfig(fs)
	require.NoError(t, err)

	host, err := cfg.Chain.HostContract()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000aa"), host)
	assert.Equal(t, uint64(250), cfg.Chain.PageSize)
	assert.Equal(t, 3, cfg.Chain.PollInterval)
	assert.Equal(t, 2.0, cfg.Retry.Factor)
}

func TestLoadConfigRejectsTelegramWithoutChat(t *testing.T) {
	chdirTemp(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	_, err := LoadConfig(nil)
	assert.Error(t, err)
}
