package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"learning-app-go/internal/config"
	"learning-app-go/internal/domain/learning"
	syncdomain "learning-app-go/internal/domain/sync"
	"learning-app-go/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(config.RemoteConfig{BaseURL: server.URL + "/", Timeout: time.Second}, logger.NewNop())
}

func TestFetchLessons(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/lessons", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":1,"title":"Intro","content":"c","progress":25}]`))
	})

	lessons, err := client.FetchLessons(context.Background())
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, learning.Lesson{ID: 1, Title: "Intro", Content: "c", Progress: 25}, lessons[0])
}

func TestFetchLessonsServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchLessons(context.Background())
	require.ErrorIs(t, err, syncdomain.ErrRemoteUnavailable)
}

func TestFetchLessonsUndecodableBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"`))
	})

	_, err := client.FetchLessons(context.Background())
	require.ErrorIs(t, err, syncdomain.ErrRemoteUnavailable)
}

func TestFetchUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(config.RemoteConfig{BaseURL: url, Timeout: time.Second}, logger.NewNop())
	_, err := client.FetchLessons(context.Background())
	require.ErrorIs(t, err, syncdomain.ErrRemoteUnavailable)
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchLessons(ctx)
	require.ErrorIs(t, err, syncdomain.ErrRemoteUnavailable)
}

func TestSubmitProgress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/lessons/7/progress", r.URL.Path)
		assert.Equal(t, "op-1", r.Header.Get(idempotencyHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 55.0, body["progress"])

		_, _ = w.Write([]byte(`{"success":true,"message":"Progress updated"}`))
	})

	require.NoError(t, client.SubmitProgress(context.Background(), "op-1", 7, 55))
}

func TestSubmitProgressRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"Unknown POST endpoint"}`))
	})

	err := client.SubmitProgress(context.Background(), "op-1", 7, 55)
	require.ErrorIs(t, err, syncdomain.ErrRemoteRejected)
	assert.Contains(t, err.Error(), "Unknown POST endpoint")
	assert.NotErrorIs(t, err, syncdomain.ErrRemoteUnavailable)
}

func TestSubmitClientErrorIsRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"progress out of range"}`))
	})

	err := client.SubmitProgress(context.Background(), "op-1", 7, 55)
	require.ErrorIs(t, err, syncdomain.ErrRemoteRejected)
	assert.Contains(t, err.Error(), "progress out of range")
}

func TestSubmitThrottledIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := client.SubmitProgress(context.Background(), "op-1", 7, 55)
	require.ErrorIs(t, err, syncdomain.ErrRemoteUnavailable)
}

func TestSubmitNote(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notes", r.URL.Path)
		assert.Equal(t, "op-2", r.Header.Get(idempotencyHeader))

		var body noteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(3), body.LessonID)
		assert.Equal(t, "remember this", body.Text)
		assert.True(t, body.Timestamp.Equal(ts))

		_, _ = w.Write([]byte(`{"id":11,"lessonId":3,"text":"remember this","timestamp":"2024-05-01T10:00:00Z"}`))
	})

	saved, err := client.SubmitNote(context.Background(), "op-2", learning.Note{ID: 4, LessonID: 3, Text: "remember this", Timestamp: ts})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, int64(11), saved.ID)
	assert.Equal(t, int64(3), saved.LessonID)
}

func TestSubmitNoteRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"nope"}`))
	})

	_, err := client.SubmitNote(context.Background(), "op-2", learning.Note{LessonID: 3, Text: "x"})
	require.ErrorIs(t, err, syncdomain.ErrRemoteRejected)
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	require.NoError(t, client.Ping(context.Background()))
}
