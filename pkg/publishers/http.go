package publishers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/userdesk/pkg/httpclient"
)

// maxErrorSnippet bounds how much of a rejected webhook response is kept in errors.
const maxErrorSnippet = 512

// webhookPublisher delivers activity events as JSON to an HTTP endpoint.
type webhookPublisher struct {
	id     string
	method string
	url    string
	client *resty.Client
	log    deliveryLog
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	hc := cfg.HTTP
	if hc == nil {
		return nil, fmt.Errorf("publisher %q: http block is required", cfg.ID)
	}
	method := hc.Method
	if method == "" {
		method = defaultWebhookMethod
	}

	client := httpclient.NewRestyHTTPClient(time.Duration(hc.TimeoutSeconds) * time.Second).
		SetHeaders(hc.Headers).
		SetHeader("Content-Type", "application/json")

	return &webhookPublisher{
		id:     cfg.ID,
		method: method,
		url:    hc.URL,
		client: client,
		log:    newDeliveryLog(log, cfg.ID, TypeHTTP),
	}, nil
}

func (w *webhookPublisher) ID() string   { return w.id }
func (w *webhookPublisher) Type() string { return TypeHTTP }

func (w *webhookPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("X-Event-Type", evt.Type).
		SetBody(evt).
		Execute(w.method, w.url)
	if err != nil {
		w.log.failed(evt, err)
		return fmt.Errorf("webhook %s %s: %w", w.method, w.url, err)
	}
	if resp.StatusCode() >= http.StatusMultipleChoices {
		err := fmt.Errorf("webhook rejected event with %d: %s", resp.StatusCode(), snippet(resp.Body()))
		w.log.failed(evt, err)
		return err
	}
	w.log.delivered(evt, resp.Header().Get("X-Request-Id"))
	return nil
}

func snippet(body []byte) string {
	if len(body) > maxErrorSnippet {
		body = body[:maxErrorSnippet]
	}
	return strings.TrimSpace(string(body))
}
