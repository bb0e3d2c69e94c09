package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/corelib/internal/corerr"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "corelib.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTempConfig(t, `
listen_address: 0.0.0.0
backlog: 128
scratch_buffer_size: 65536
event_ring_capacity: 1024
rules:
  - name: greeting
    pattern: "^hello"
  - name: digits
    pattern: "[0-9]+"
`)

	cfg, compiled, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.ListenAddress)
	require.Len(t, compiled, 2)
	require.Equal(t, "greeting", compiled[0].Name)
	require.True(t, compiled[0].Re != nil)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.True(t, corerr.Is(err, corerr.CodeConfigRead))
}

func TestLoadSchemaViolation(t *testing.T) {
	path := writeTempConfig(t, `
listen_address: 0.0.0.0
backlog: -1
`)
	_, _, err := Load(path)
	require.Error(t, err)
	require.True(t, corerr.Is(err, corerr.CodeConfigSchema))
}

func TestLoadInvalidRulePattern(t *testing.T) {
	path := writeTempConfig(t, `
listen_address: 0.0.0.0
backlog: 128
scratch_buffer_size: 65536
event_ring_capacity: 1024
rules:
  - name: broken
    pattern: "(unclosed"
`)
	_, _, err := Load(path)
	require.Error(t, err)
	require.True(t, corerr.Is(err, corerr.CodeConfigRule))
}

func TestWatchDebouncesBurstsAndReloads(t *testing.T) {
	path := writeTempConfig(t, `
listen_address: 0.0.0.0
backlog: 128
scratch_buffer_size: 65536
event_ring_capacity: 1024
rules:
  - name: first
    pattern: "a"
`)

	reloaded := make(chan *Config, 4)
	closer, err := Watch(path, nil, func(cfg *Config, compiled []CompiledRule) {
		reloaded <- cfg
	})
	require.NoError(t, err)
	defer closer.Close()

	// Rapid successive writes within the debounce window should collapse
	// into a single reload once the file settles.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`
listen_address: 127.0.0.1
backlog: 64
scratch_buffer_size: 65536
event_ring_capacity: 1024
rules:
  - name: second
    pattern: "b"
`), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case cfg := <-reloaded:
		require.Equal(t, "127.0.0.1", cfg.ListenAddress)
	case <-time.After(2 * time.Second):
		t.Fatal("config reload was never observed")
	}
}
