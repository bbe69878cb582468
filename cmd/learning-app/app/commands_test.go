package app

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	internalapp "learning-app-go/internal/app"
	"learning-app-go/internal/config"
	syncdomain "learning-app-go/internal/domain/sync"
	"learning-app-go/pkg/logger"
)

func offlineFactory(t *testing.T) factory {
	t.Helper()
	cfg := config.Config{
		LocalStore: config.LocalStoreConfig{
			Driver: config.LocalStoreSQLite,
			Path:   filepath.Join(t.TempDir(), "cli.db"),
		},
		Remote: config.RemoteConfig{
			BaseURL: "http://127.0.0.1:1",
			Timeout: time.Second,
		},
		Connectivity: config.ConnectivityConfig{Mode: config.ConnectivityOffline},
		Outbox: config.OutboxConfig{
			FlushInterval: time.Minute,
			MaxAttempts:   1,
			BatchSize:     10,
		},
	}
	return func(log logger.Logger) (*internalapp.App, error) {
		return internalapp.NewWithConfig(cfg, log)
	}
}

func run(t *testing.T, open factory, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(logger.NewNop(), open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInitOfflineWithEmptyStore(t *testing.T) {
	out, err := run(t, offlineFactory(t), "init")
	require.NoError(t, err)

	var got struct {
		Outcome syncdomain.Outcome `json:"outcome"`
		View    syncdomain.View    `json:"view"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, syncdomain.OutcomeLocal, got.Outcome)
	assert.Equal(t, syncdomain.PhaseOfflineLocal, got.View.Phase)
	assert.True(t, got.View.IsOffline)
	assert.Empty(t, got.View.Lessons)
}

func TestProgressOnMissingLessonFails(t *testing.T) {
	out, err := run(t, offlineFactory(t), "progress", "4", "50")
	require.Error(t, err)
	assert.Contains(t, out, `"outcome": "not_found"`)
}

func TestNoteQueuedWhileOffline(t *testing.T) {
	open := offlineFactory(t)

	out, err := run(t, open, "note", "1", "remember", "this")
	require.NoError(t, err)
	assert.Contains(t, out, `"outcome": "local"`)

	out, err = run(t, open, "status")
	require.NoError(t, err)
	var status statusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, int64(1), status.PendingCount)
	assert.Equal(t, syncdomain.PhaseOfflineLocal, status.Phase)
}

func TestInvalidArguments(t *testing.T) {
	_, err := run(t, offlineFactory(t), "select", "abc")
	require.Error(t, err)

	_, err = run(t, offlineFactory(t), "progress", "1", "lots")
	require.Error(t, err)
}
