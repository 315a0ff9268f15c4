package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sunio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(PathEnv, "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, 300*time.Millisecond, cfg.Client.DrawerDelay)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
client:
  api_url: http://api.internal:9000
  codec: msgpack
  drawer_delay: 150ms
log:
  level: debug
server:
  db_path: /var/lib/sunio.db
`)
	t.Setenv(PathEnv, path)
	t.Setenv("SUNIO_API_URL", "http://override:1234")
	t.Setenv("SUNIO_FETCH_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://override:1234", cfg.Client.APIURL, "env wins over the file")
	require.Equal(t, "msgpack", cfg.Client.Codec)
	require.Equal(t, 150*time.Millisecond, cfg.Client.DrawerDelay)
	require.Equal(t, 2*time.Second, cfg.Client.FetchTimeout)
	require.Equal(t, "/var/lib/sunio.db", cfg.Server.DBPath)
	require.Equal(t, ":8080", cfg.Server.ListenAddr, "unset keys keep their defaults")
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv(PathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
		_, err := Load()
		require.ErrorContains(t, err, "read config file")
	})

	t.Run("malformed file", func(t *testing.T) {
		t.Setenv(PathEnv, writeFile(t, "client: [not, a, map"))
		_, err := Load()
		require.ErrorContains(t, err, "parse config file")
	})

	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv(PathEnv, "")
		t.Setenv("SUNIO_DRAWER_DELAY", "soon")
		_, err := Load()
		require.ErrorContains(t, err, "parse env")
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Setenv(PathEnv, "")
		t.Setenv("SUNIO_CODEC", "xml")
		t.Setenv("SUNIO_LOG_LEVEL", "loud")
		_, err := Load()
		require.ErrorContains(t, err, "client.codec")
		require.ErrorContains(t, err, "log.level")
	})
}

func TestConfig_Validate(t *testing.T) {
	cfg := Default()
	cfg.Client.DrawerDelay = -time.Second
	cfg.Server.TokenTTL = 0
	err := cfg.Validate()
	require.ErrorContains(t, err, "drawer_delay")
	require.ErrorContains(t, err, "token_ttl")

	require.NoError(t, Default().Validate())
}
