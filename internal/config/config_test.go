package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"learning-app-go/pkg/logger"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"LOCAL_STORE_DRIVER", "CONNECTIVITY_MODE", "REMOTE_BASE_URL", "STUB_LATENCY", "OUTBOX_MAX_ATTEMPTS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load(logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, LocalStoreSQLite, cfg.LocalStore.Driver)
	assert.Equal(t, ConnectivityProbe, cfg.Connectivity.Mode)
	assert.Equal(t, "http://localhost:8080", cfg.Remote.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Stub.Latency)
	assert.Equal(t, 3, cfg.Outbox.MaxAttempts)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOCAL_STORE_DRIVER", "Postgres")
	t.Setenv("CONNECTIVITY_MODE", "offline")
	t.Setenv("REMOTE_BASE_URL", "http://lessons.internal/")
	t.Setenv("REMOTE_TIMEOUT", "3s")
	t.Setenv("OUTBOX_BATCH_SIZE", "7")
	t.Setenv("STUB_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load(logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, LocalStorePostgres, cfg.LocalStore.Driver)
	assert.Equal(t, ConnectivityOffline, cfg.Connectivity.Mode)
	assert.Equal(t, "http://lessons.internal", cfg.Remote.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 7, cfg.Outbox.BatchSize)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Stub.AllowedOrigins)
}

func TestLoadRejectsUnknownModes(t *testing.T) {
	t.Setenv("LOCAL_STORE_DRIVER", "mysql")
	_, err := Load(logger.NewNop())
	require.Error(t, err)

	t.Setenv("LOCAL_STORE_DRIVER", "sqlite")
	t.Setenv("CONNECTIVITY_MODE", "sometimes")
	_, err = Load(logger.NewNop())
	require.Error(t, err)
}

func TestLocalStoreDSN(t *testing.T) {
	dsn := LocalStoreConfig{Path: "data/app.db"}.GetDSN()
	assert.Equal(t, "data/app.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dsn)

	dsn = LocalStoreConfig{Path: "file:app.db?cache=shared"}.GetDSN()
	assert.Contains(t, dsn, "cache=shared&_pragma=busy_timeout(5000)")
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	contents := `# local overrides
REMOTE_BASE_URL=http://from-file.test/
OUTBOX_MAX_ATTEMPTS=9
CONNECTIVITY_MODE=online
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(contents), 0o600))

	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(nested, 0o755))
	t.Chdir(nested)

	t.Setenv("REMOTE_BASE_URL", "")
	t.Setenv("OUTBOX_MAX_ATTEMPTS", "")
	t.Setenv("CONNECTIVITY_MODE", "offline")

	cfg, err := Load(logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "http://from-file.test", cfg.Remote.BaseURL)
	assert.Equal(t, 9, cfg.Outbox.MaxAttempts)
	assert.Equal(t, ConnectivityOffline, cfg.Connectivity.Mode, "environment wins over the file")
}

func TestLoadRejectsBadDurations(t *testing.T) {
	t.Setenv("REMOTE_TIMEOUT", "soon")
	_, err := Load(logger.NewNop())
	require.Error(t, err)
}
