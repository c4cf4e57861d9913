package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("parses a full file", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "coordination.yaml", `
store:
  url: redis://cache:6380/1
  fail_mode: open
  connect_timeout: 2s
queue:
  max_length: 500
  enable_compression: true
  compression_threshold: 2048
worker:
  batch_size: 10
  max_retries: 5
  backoff_base: 250ms
  dequeue_timeout: 1s
  max_consecutive_errors: 20
dlq:
  kind: file
  dir: /var/spool/dlq
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "redis://cache:6380/1", cfg.Store.GetURL())
		assert.Equal(t, "open", cfg.Store.FailMode)
		assert.Equal(t, 2*time.Second, cfg.Store.GetConnectTimeout())

		assert.Equal(t, 500, cfg.Queue.GetMaxLength())
		assert.True(t, cfg.Queue.GetEnableCompression())
		assert.Equal(t, 2048, cfg.Queue.GetCompressionThreshold())

		assert.Equal(t, 10, cfg.Worker.GetBatchSize())
		assert.Equal(t, 5, cfg.Worker.GetMaxRetries())
		assert.Equal(t, 250*time.Millisecond, cfg.Worker.GetBackoffBase())
		assert.Equal(t, time.Second, cfg.Worker.GetDequeueTimeout())
		assert.Equal(t, 20, cfg.Worker.GetMaxConsecutiveErrors())

		assert.Equal(t, "file", cfg.DLQ.GetKind())
		assert.Equal(t, "/var/spool/dlq", cfg.DLQ.GetDir())
	})

	t.Run("finds coordination.yaml in a directory", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "coordination.yaml", "store:\n  url: redis://a:1/0\n")

		cfg, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "redis://a:1/0", cfg.Store.GetURL())
	})

	t.Run("falls back to coordination.yml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "coordination.yml", "store:\n  url: redis://b:2/0\n")

		cfg, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "redis://b:2/0", cfg.Store.GetURL())
	})

	t.Run("errors when nothing is found", func(t *testing.T) {
		_, err := Load(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("errors on malformed yaml", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "coordination.yaml", "store: [not a mapping")

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestDefaults(t *testing.T) {
	t.Run("nil sections return defaults", func(t *testing.T) {
		var cfg Config

		assert.Equal(t, "redis://localhost:6379/0", cfg.Store.GetURL())
		assert.Equal(t, 5*time.Second, cfg.Store.GetConnectTimeout())
		assert.Equal(t, 1000, cfg.Queue.GetMaxLength())
		assert.False(t, cfg.Queue.GetEnableCompression())
		assert.Equal(t, 1024, cfg.Queue.GetCompressionThreshold())
		assert.Equal(t, 1, cfg.Worker.GetBatchSize())
		assert.Equal(t, 3, cfg.Worker.GetMaxRetries())
		assert.Equal(t, time.Second, cfg.Worker.GetBackoffBase())
		assert.Equal(t, 5*time.Second, cfg.Worker.GetDequeueTimeout())
		assert.Equal(t, 10, cfg.Worker.GetMaxConsecutiveErrors())
		assert.Equal(t, "redis", cfg.DLQ.GetKind())
		assert.Equal(t, "dlq", cfg.DLQ.GetDir())
	})

	t.Run("invalid durations return defaults", func(t *testing.T) {
		w := &WorkerConfig{BackoffBase: "soon", DequeueTimeout: "later"}
		assert.Equal(t, time.Second, w.GetBackoffBase())
		assert.Equal(t, 5*time.Second, w.GetDequeueTimeout())
	})
}

func TestLoadFromDir(t *testing.T) {
	t.Run("walks up to a parent directory", func(t *testing.T) {
		root := t.TempDir()
		writeConfig(t, root, "coordination.yaml", "queue:\n  max_length: 42\n")

		nested := filepath.Join(root, "a", "b")
		require.NoError(t, os.MkdirAll(nested, 0o755))

		cfg, err := LoadFromDir(nested)
		require.NoError(t, err)
		assert.Equal(t, 42, cfg.Queue.GetMaxLength())
	})
}
