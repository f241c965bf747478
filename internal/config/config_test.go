package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsQuiet(t *testing.T) {
	opts := Default()
	assert.Equal(t, 0, opts.Debug)
	assert.Equal(t, 0, opts.DebugSrcLevel("dce"))
	assert.Equal(t, 0, opts.DumpTreeLevel("dce"))
	assert.Equal(t, "obj_dir", opts.DumpDir)
}

func TestPerSourceOverrides(t *testing.T) {
	opts := Default()
	opts.Debug = 1
	opts.DebugSrc["dce"] = 5
	opts.DumpTreeSrc["dce"] = 3

	assert.Equal(t, 5, opts.DebugSrcLevel("dce"))
	assert.Equal(t, 1, opts.DebugSrcLevel("width"))
	assert.Equal(t, 3, opts.DumpTreeLevel("dce"))
	assert.Equal(t, 0, opts.DumpTreeLevel("width"))
}

func TestDebugfRespectsLevel(t *testing.T) {
	opts := Default()
	var buf bytes.Buffer
	opts.SetLogWriter(&buf)

	opts.Debugf("dce", 4, "hidden %d", 1)
	assert.Empty(t, buf.String())

	opts.DebugSrc["dce"] = 4
	opts.Debugf("dce", 4, "shown %d", 2)
	assert.Contains(t, buf.String(), "dce: shown 2")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "svtnt.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"debug": 2,
		"dumpTree": 3,
		"debugSrc": {"dce": 6},
		"dumpDir": "dumps"
	}`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	opts := cfg.ToOptions()
	assert.Equal(t, 2, opts.Debug)
	assert.Equal(t, 3, opts.DumpTree)
	assert.Equal(t, 6, opts.DebugSrcLevel("dce"))
	assert.Equal(t, "dumps", opts.DumpDir)
}

func TestLoadFileRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "svtnt.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadSearchesParentDirs(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".svtntrc"), []byte(`{"debug": 1}`), 0o644))

	cfg, path, err := Load(nested)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, filepath.Join(dir, ".svtntrc"), path)
	assert.Equal(t, 1, cfg.ToOptions().Debug)
}

func TestLoadWithoutConfigFile(t *testing.T) {
	cfg, path, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.Empty(t, path)
}

func TestMergeOverridesWin(t *testing.T) {
	debug := 2
	cfg := &File{Debug: &debug}

	cli := 7
	dir := "elsewhere"
	opts := cfg.Merge(Overrides{Debug: &cli, DumpDir: &dir})

	assert.Equal(t, 7, opts.Debug)
	assert.Equal(t, "elsewhere", opts.DumpDir)
}
