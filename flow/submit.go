package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Transport delivers the final submission. Exactly one transport is selected
// per session; see selectTransport for the precedence.
type Transport interface {
	Submit(ctx context.Context, payload map[string]any) error
}

// SubmissionMeta is attached to webhook payloads under the "_meta" key.
type SubmissionMeta struct {
	Variant   string `json:"variant,omitempty"`
	Timestamp int64  `json:"timestamp"`
	FormID    string `json:"formId"`
}

// WebhookTransport POSTs the captured data as JSON to a configured endpoint.
// Any 2xx response counts as success.
type WebhookTransport struct {
	client *resty.Client
	url    string
}

func NewWebhookTransport(url string, timeout time.Duration) *WebhookTransport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookTransport{
		client: resty.New().SetTimeout(timeout),
		url:    url,
	}
}

func (t *WebhookTransport) Submit(ctx context.Context, payload map[string]any) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(t.url)
	if err != nil {
		return fmt.Errorf("webhook submission failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook responded with %s", resp.Status())
	}
	return nil
}

// CallbackTransport adapts a caller-supplied function.
type CallbackTransport func(ctx context.Context, payload map[string]any) error

func (t CallbackTransport) Submit(ctx context.Context, payload map[string]any) error {
	return t(ctx, payload)
}

// noopTransport is selected when no transport is configured: submission is a
// no-op logged as informational.
type noopTransport struct {
	logger *slog.Logger
}

func (t noopTransport) Submit(ctx context.Context, payload map[string]any) error {
	t.logger.Info("no submission transport configured, dropping payload",
		"fields", len(payload))
	return nil
}

// selectTransport picks the session transport: explicit configuration wins,
// then a declared webhook endpoint, then a caller-supplied callback, then the
// logged no-op.
func selectTransport(cfg Config, def *Definition, logger *slog.Logger) Transport {
	switch {
	case cfg.Transport != nil:
		return cfg.Transport
	case def.WebhookURL != "":
		return NewWebhookTransport(def.WebhookURL, cfg.SubmitTimeout)
	case cfg.OnSubmit != nil:
		return CallbackTransport(cfg.OnSubmit)
	default:
		return noopTransport{logger: logger}
	}
}
