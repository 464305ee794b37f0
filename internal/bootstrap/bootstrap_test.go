package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/mobilesync/internal/config"
)

func TestCleanupLogs_KeepsNewest(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf(LogFileNamePattern, fmt.Sprintf("2026-01-%02d_00-00-00", i+1))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))

	cleanupLogs(dir, 9)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var logs []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) == LogFileExtension {
			logs = append(logs, e.Name())
		}
	}
	assert.Len(t, logs, 9)
	assert.NotContains(t, logs, "session_2026-01-01_00-00-00.log")
	assert.Contains(t, logs, "session_2026-01-12_00-00-00.log")
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestInitializeRepositories_Memory(t *testing.T) {
	repos, err := InitializeRepositories(context.Background(), &config.Config{StorageBackend: config.StorageBackendMemory})
	require.NoError(t, err)
	defer repos.Close()

	assert.Nil(t, repos.Pool)
	assert.NotNil(t, repos.Idempotency)
	assert.NotNil(t, repos.Policies)
	assert.NotNil(t, repos.Entities)
	assert.NotNil(t, repos.Conflicts)
	assert.NotNil(t, repos.Health)
	assert.NotNil(t, repos.Uploads)
	assert.NotNil(t, repos.Analytics)
	assert.NotNil(t, repos.EventLog)
}

func TestInitializeRepositories_UnknownBackend(t *testing.T) {
	_, err := InitializeRepositories(context.Background(), &config.Config{StorageBackend: "sqlite"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgUnknownStorage)
}

func TestInitializeEventSystem_CreatesDeadLetterDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events", "deadletter.jsonl")

	bus, publisher, err := InitializeEventSystem(&config.Config{EventDeadLetterPath: path})
	require.NoError(t, err)
	require.NotNil(t, bus)
	require.NotNil(t, publisher)
	defer publisher.Shutdown(context.Background())

	assert.DirExists(t, filepath.Dir(path))
}

func TestResolveEventSettings_Defaults(t *testing.T) {
	s := resolveEventSettings(&config.Config{EventMaxRetries: -1})
	assert.Equal(t, EventDefaultMaxRetries, s.maxRetries)
	assert.Equal(t, EventDefaultRetryDelay, s.retryDelay)
	assert.Equal(t, EventDefaultDeadLetterPath, s.deadLetterPath)

	s = resolveEventSettings(&config.Config{EventMaxRetries: 2, EventRetryDelay: time.Second, EventDeadLetterPath: "x/dl.jsonl"})
	assert.Equal(t, 2, s.maxRetries)
	assert.Equal(t, time.Second, s.retryDelay)
	assert.Equal(t, "x/dl.jsonl", s.deadLetterPath)
}
