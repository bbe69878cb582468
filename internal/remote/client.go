package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"learning-app-go/internal/config"
	"learning-app-go/internal/domain/learning"
	syncdomain "learning-app-go/internal/domain/sync"
	"learning-app-go/pkg/logger"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxResponseBytes  = 4 << 20
)

// Client talks JSON over HTTP to the lesson service.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

// Ack is the service's acknowledgement body for mutations.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type noteRequest struct {
	LessonID  int64     `json:"lessonId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type noteResponse struct {
	ID        int64     `json:"id"`
	LessonID  int64     `json:"lessonId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Success   *bool     `json:"success"`
	Message   string    `json:"message"`
}

func New(cfg config.RemoteConfig, log logger.Logger) *Client {
	return NewWithHTTPClient(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout}, log)
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     logger.Component(log, "remote"),
	}
}

// Fetch issues GET resource and decodes the JSON body into dst.
func (c *Client) Fetch(ctx context.Context, resource string, dst any) error {
	return c.do(ctx, http.MethodGet, resource, nil, "", dst)
}

// Submit POSTs payload as JSON and decodes the response into dst when dst is
// not nil.
func (c *Client) Submit(ctx context.Context, resource string, payload any, idempotencyKey string, dst any) error {
	return c.do(ctx, http.MethodPost, resource, payload, idempotencyKey, dst)
}

func (c *Client) FetchLessons(ctx context.Context) ([]learning.Lesson, error) {
	var lessons []learning.Lesson
	if err := c.Fetch(ctx, "/lessons", &lessons); err != nil {
		return nil, err
	}
	return lessons, nil
}

func (c *Client) SubmitProgress(ctx context.Context, operationID string, lessonID int64, progress float64) error {
	resource := "/lessons/" + strconv.FormatInt(lessonID, 10) + "/progress"

	var ack Ack
	if err := c.Submit(ctx, resource, map[string]float64{"progress": progress}, operationID, &ack); err != nil {
		return err
	}
	if !ack.Success {
		return rejected(ack.Message)
	}
	return nil
}

func (c *Client) SubmitNote(ctx context.Context, operationID string, note learning.Note) (*learning.Note, error) {
	body := noteRequest{
		LessonID:  note.LessonID,
		Text:      note.Text,
		Timestamp: note.Timestamp,
	}

	var resp noteResponse
	if err := c.Submit(ctx, "/notes", body, operationID, &resp); err != nil {
		return nil, err
	}
	if resp.Success != nil && !*resp.Success {
		return nil, rejected(resp.Message)
	}
	return &learning.Note{
		ID:        resp.ID,
		LessonID:  resp.LessonID,
		Text:      resp.Text,
		Timestamp: resp.Timestamp,
	}, nil
}

// Ping checks that the service answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, "", nil)
}

func (c *Client) do(ctx context.Context, method, resource string, payload any, idempotencyKey string, dst any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, resource, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+resource, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, resource, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set(idempotencyHeader, idempotencyKey)
	}

	startedAt := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("remote: request failed", "method", method, "resource", resource, "error", err.Error())
		return unavailable(method, resource, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return unavailable(method, resource, fmt.Errorf("read body: %w", err))
	}

	c.log.Debug("remote: request completed",
		"method", method,
		"resource", resource,
		"status", resp.StatusCode,
		"duration_ms", time.Since(startedAt).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(method, resource, resp.StatusCode, raw)
	}
	if dst == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return unavailable(method, resource, fmt.Errorf("decode body: %w", err))
	}
	return nil
}

// statusError maps a non-2xx answer. Client errors other than timeouts and
// throttling are definitive, so they surface as rejections.
func statusError(method, resource string, status int, raw []byte) error {
	switch {
	case status >= 500, status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return unavailable(method, resource, fmt.Errorf("status %d", status))
	}

	var ack Ack
	message := http.StatusText(status)
	if err := json.Unmarshal(raw, &ack); err == nil && ack.Message != "" {
		message = ack.Message
	}
	return fmt.Errorf("%w: %s %s: status %d: %s", syncdomain.ErrRemoteRejected, method, resource, status, message)
}

func unavailable(method, resource string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", syncdomain.ErrRemoteUnavailable, method, resource, err)
}

func rejected(message string) error {
	if message == "" {
		return syncdomain.ErrRemoteRejected
	}
	return fmt.Errorf("%w: %s", syncdomain.ErrRemoteRejected, message)
}
