package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Engine.ShardCount)
	assert.Equal(t, 24*time.Hour, cfg.Engine.IdempotencyTTL)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
engine:
  shard_count: 2
  idempotency_ttl: 30m
  snapshot_interval: 50
kafka:
  enabled: true
  brokers: ["localhost:9092"]
  topic: events
instruments:
  - book_id: ABC
    price_scale: 2
    size_scale: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2, cfg.Engine.ShardCount)
	assert.Equal(t, 1000, cfg.Engine.QueueSize, "unset fields keep their defaults")
	assert.Equal(t, 30*time.Minute, cfg.Engine.IdempotencyTTL)
	assert.Equal(t, int64(50), cfg.Engine.SnapshotInterval)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	require.Len(t, cfg.Instruments, 1)
	assert.Equal(t, int32(2), cfg.Instruments[0].PriceScale)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ADDR", ":7000")
	t.Setenv("APP_DATA_DIR", "/tmp/books")
	t.Setenv("APP_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("APP_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "/tmp/books", cfg.Storage.Dir)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero shards", "engine:\n  shard_count: -1\n"},
		{"kafka without brokers", "kafka:\n  enabled: true\n"},
		{"scale out of range", "instruments:\n  - book_id: ABC\n    price_scale: 19\n"},
		{"duplicate instrument", "instruments:\n  - book_id: ABC\n  - book_id: ABC\n"},
		{"bad yaml", "engine: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
