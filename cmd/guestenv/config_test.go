package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/govm-net/guestenv/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "guestenv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host:
  gas_limit: 1234
vm:
  memory_limit_pages: 16
store:
  type: db
  params:
    db_path: /tmp/contracts.db
code_dir: /tmp/code
`), 0644))

	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), cfg.Host.GasLimit)
	assert.Equal(t, uint32(16), cfg.VM.MemoryLimitPages)
	assert.Equal(t, defaultConfig().VM.MaxCodeSize, cfg.VM.MaxCodeSize)
	assert.Equal(t, store.DBType, cfg.Store.Type)
	assert.Equal(t, "/tmp/contracts.db", cfg.Store.Params["db_path"])
	assert.Equal(t, "/tmp/code", cfg.CodeDir)
	assert.Equal(t, defaultConfig().Origin, cfg.Origin)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
