package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ExportEvent is posted when an export reaches a terminal state.
type ExportEvent struct {
	ExportID   string    `json:"export_id"`
	ProjectID  string    `json:"project_id"`
	Status     string    `json:"status"`
	Location   string    `json:"location,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// Notifier delivers export events.
type Notifier interface {
	Notify(ctx context.Context, event ExportEvent) error
}

// DeliveryError represents a non-2xx response from the webhook endpoint.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook delivery failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx).
// Client errors (4xx) are considered permanent.
func (e *DeliveryError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// WebhookNotifier posts events as JSON with a bearer token.
type WebhookNotifier struct {
	url        string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewWebhookNotifier(url, token string, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:   url,
		token: token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, event ExportEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal export event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Heimdex-Request-Id", uuid.NewString())
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		n.logger.Info("export event delivered", "export_id", event.ExportID, "status", event.Status)
		return nil
	}
	return &DeliveryError{StatusCode: resp.StatusCode, Body: string(respBody)}
}

// NopNotifier drops events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, ExportEvent) error { return nil }
