package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetGlobals restores the package-level flag state and the global
// viper instance after a bootstrap test.
func resetGlobals(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile = ""
		debug = false
		viper.Reset()
	})
	viper.Reset()
}

func TestBootstrapLoadsConfigFlagFile(t *testing.T) {
	resetGlobals(t)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: custom-app\n"), 0o644))

	require.NoError(t, bootstrap([]string{"--config", path, "run"}))

	assert.Equal(t, path, viper.ConfigFileUsed())
	assert.Equal(t, "custom-app", viper.GetString("app.name"))
}

func TestBootstrapDebugFlagRewiresLogger(t *testing.T) {
	resetGlobals(t)

	require.NoError(t, bootstrap([]string{"--debug"}))

	assert.Equal(t, "debug", viper.GetString("logger.level"))
	assert.Equal(t, "console", viper.GetString("logger.encoding"))
	assert.True(t, viper.GetBool("logger.development"))
}

func TestBootstrapWithoutConfigFileUsesDefaults(t *testing.T) {
	resetGlobals(t)

	require.NoError(t, bootstrap(nil))

	assert.Equal(t, "goscrape", viper.GetString("app.name"))
	assert.Equal(t, "info", viper.GetString("logger.level"))
}
