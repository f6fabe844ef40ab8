package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happyhackingspace/chaincrf/crf"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model: models/ner.json
data_folder: data
method: beam
seed: 42
average_batch: true
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "models/ner.json", cfg.Model)
	assert.Equal(t, "data", cfg.DataFolder)
	assert.Equal(t, "beam", cfg.Method)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, uint64(42), *cfg.Seed)

	c := cfg.CRF()
	assert.True(t, c.AverageBatch)
	assert.Equal(t, crf.DefaultSentinel, c.Sentinel)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("method: greedy\n"), 0644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, `unknown method "greedy"`)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("seed: [1\n"), 0644))
	_, err = Load(broken)
	assert.Error(t, err)
}

func TestZeroConfigDefaults(t *testing.T) {
	assert.Equal(t, crf.DefaultConfig(), Config{}.CRF())
	sentinel := -50.0
	assert.Equal(t, -50.0, Config{Sentinel: &sentinel}.CRF().Sentinel)
}
