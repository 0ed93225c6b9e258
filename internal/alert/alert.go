package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/oshokin/git-atomic/internal/logger"
)

// Severity ranks how urgent an alert is.
type Severity string

const (
	// SeverityInfo marks operational events worth surfacing, not acting on.
	SeverityInfo Severity = "info"
	// SeverityWarning marks degraded behavior that resolved itself.
	SeverityWarning Severity = "warning"
	// SeverityCritical marks conditions needing a human, like merge conflicts.
	SeverityCritical Severity = "critical"
)

// Notifier is the external alert sink consumed by the operation layer.
type Notifier interface {
	// Notify delivers one alert. kvs are alternating key-value pairs of context.
	Notify(ctx context.Context, severity Severity, title, message string, kvs ...any) error
}

// LogNotifier routes alerts into the structured log.
// It is the default sink when no webhook is configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Notify writes the alert at a level matching its severity.
func (n *LogNotifier) Notify(ctx context.Context, severity Severity, title, message string, kvs ...any) error {
	kvs = append([]any{"title", title, "severity", string(severity)}, kvs...)

	switch severity {
	case SeverityCritical:
		logger.ErrorKV(ctx, message, kvs...)
	case SeverityWarning:
		logger.WarnKV(ctx, message, kvs...)
	default:
		logger.InfoKV(ctx, message, kvs...)
	}

	return nil
}

// payload is the JSON body posted to the webhook endpoint.
type payload struct {
	Severity  Severity       `json:"severity"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
}

// defaultWebhookTimeout bounds one delivery attempt.
const defaultWebhookTimeout = 10 * time.Second

// WebhookNotifier posts alerts as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier delivering to the given URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
	}
}

// Notify posts the alert. A non-2xx response is an error; delivery failures
// never interrupt the operation that raised the alert, callers log and move on.
func (n *WebhookNotifier) Notify(ctx context.Context, severity Severity, title, message string, kvs ...any) error {
	body, err := json.Marshal(payload{
		Severity:  severity,
		Title:     title,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Context:   kvsToMap(kvs),
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")

	response, err := n.client.Do(request)
	if err != nil {
		return fmt.Errorf("deliver alert: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("deliver alert: unexpected status %s", response.Status)
	}

	return nil
}

// kvsToMap folds alternating key-value pairs into a JSON-friendly map.
// A trailing key without a value is kept with a nil value rather than dropped.
func kvsToMap(kvs []any) map[string]any {
	if len(kvs) == 0 {
		return nil
	}

	result := make(map[string]any, (len(kvs)+1)/2)

	for i := 0; i < len(kvs); i += 2 {
		key := fmt.Sprint(kvs[i])

		if i+1 < len(kvs) {
			result[key] = kvs[i+1]
		} else {
			result[key] = nil
		}
	}

	return result
}
