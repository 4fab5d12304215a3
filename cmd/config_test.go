package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trk/internal/output"
)

// testEnv sets up isolated config dir, viper, store, and output for testing.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	// Override configDirFunc for tests
	origFunc := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = origFunc })

	// Reset viper
	viper.Reset()
	viper.SetDefault("state_dir", dir)
	viper.SetDefault("db_path", filepath.Join(dir, "trk.db"))
	viper.SetDefault("addr", ":8000")

	// Reset shared state touched by command runs
	dataStore = nil
	dryRun = false
	configForce = false

	// Initialize output
	ui = output.New()

	return dir
}

func TestConfigInit_CreatesFile(t *testing.T) {
	dir := testEnv(t)

	err := configInitRun()
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "config.yaml")
	_, err = os.Stat(cfgPath)
	assert.NoError(t, err, "config file should exist")

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "trk configuration")
	assert.Contains(t, string(data), "db_path")
	assert.Contains(t, string(data), "addr")
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	dir := testEnv(t)

	// Create existing file
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = false
	err := configInitRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigInit_ForceOverwrite(t *testing.T) {
	dir := testEnv(t)

	// Create existing file
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = true
	err := configInitRun()
	require.NoError(t, err)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "trk configuration")
}

func TestConfigInit_DryRun(t *testing.T) {
	dir := testEnv(t)
	dryRun = true
	ui.DryRun = true

	err := configInitRun()
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	assert.True(t, os.IsNotExist(err), "dry run should not write the file")
}

func TestConfigShow_NoFile(t *testing.T) {
	testEnv(t)

	err := configShowRun()
	assert.NoError(t, err)
}

func TestConfigShow_WithFile(t *testing.T) {
	testEnv(t)

	// Create config first
	require.NoError(t, configInitRun())

	err := configShowRun()
	assert.NoError(t, err)
}

func TestConfigEdit_NoEditor(t *testing.T) {
	testEnv(t)

	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "")
	_ = os.Unsetenv("EDITOR")
	_ = os.Unsetenv("VISUAL")

	err := configEditRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "$EDITOR is not set")
}

func TestConfigEdit_NoConfigFile(t *testing.T) {
	testEnv(t)
	t.Setenv("EDITOR", "true")

	err := configEditRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDetectSource(t *testing.T) {
	testEnv(t)

	fileValues := map[string]bool{"db_path": true}

	assert.Equal(t, "(file)", detectSource("db_path", "TRK_DB_PATH", fileValues))
	assert.Equal(t, "(default)", detectSource("addr", "TRK_ADDR", fileValues))

	t.Setenv("TRK_ADDR", ":9000")
	assert.Equal(t, "(env: TRK_ADDR)", detectSource("addr", "TRK_ADDR", fileValues))
}

func TestReadConfigFileValues_NestedKeys(t *testing.T) {
	dir := testEnv(t)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("addr: \":9000\"\nserver:\n  timeout: 5\n"), 0644))

	values := readConfigFileValues(cfgPath)
	assert.True(t, values["addr"])
	assert.True(t, values["server.timeout"])
	assert.False(t, values["db_path"])
}
