package recovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Notification is what the notify_admin action emits.
type Notification struct {
	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	CompanyID   string `json:"company_id"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
}

// Notifier delivers admin notifications. Implementations must be safe to
// call more than once for the same failure.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// LogNotifier writes notifications to the structured log. The default
// when no webhook is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "recovery-notifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, notification Notification) error {
	n.logger.WarnContext(ctx, "Admin notification",
		"execution_id", notification.ExecutionID,
		"workflow_id", notification.WorkflowID,
		"company_id", notification.CompanyID,
		"severity", notification.Severity,
		"message", notification.Message)

	return nil
}

// WebhookNotifier POSTs notifications to an operator-configured endpoint
// (a Slack-compatible webhook, a pager bridge, and so on).
type WebhookNotifier struct {
	client     *http.Client
	webhookURL string
}

// NewWebhookNotifier creates a notifier POSTing to webhookURL.
func NewWebhookNotifier(webhookURL string) *WebhookNotifier {
	return &WebhookNotifier{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, notification Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification webhook responded with status %d", resp.StatusCode)
	}

	return nil
}
