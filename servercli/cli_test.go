package servercli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores flag values shared by the commands
func resetFlags() {
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Cleanup(resetFlags)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--redis-version", "6.2.1")
	require.NoError(t, err)
	assert.Equal(t, "redis_version:6.2.1\n", out)
	resetFlags()

	_, err = execute(t, "version", "--redis-version", "six")
	assert.Error(t, err)
}

func TestVersionFromConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "fakedis.conf")
	require.NoError(t, os.WriteFile(filename, []byte("version 6.0\nport 7000\n"), 0o644))
	out, err := execute(t, "version", "--config", filename)
	require.NoError(t, err)
	assert.Equal(t, "redis_version:6.0.0\n", out)
}

func TestLoadProperties(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "fakedis.conf")
	require.NoError(t, os.WriteFile(filename, []byte("port 7000\ndatabases 4\nrequirepass secret\n"), 0o644))
	defer resetFlags()
	require.NoError(t, rootCmd.ParseFlags([]string{"--port", "7001", "--loglevel", "debug"}))
	props, err := loadProperties(rootCmd, filename)
	require.NoError(t, err)
	assert.Equal(t, 7001, props.Port)
	assert.Equal(t, 4, props.Databases)
	assert.Equal(t, "secret", props.RequirePass)
	assert.Equal(t, "debug", props.LogLevel)
}

func TestParsePort(t *testing.T) {
	port, err := parsePort("6380")
	require.NoError(t, err)
	assert.Equal(t, 6380, port)
	_, err = parsePort("70000")
	assert.Error(t, err)
	_, err = parsePort("abc")
	assert.Error(t, err)
}
