package notification

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/wonny/orion/pkg/httputil"
)

// WebhookChannel POSTs alerts as JSON
type WebhookChannel struct {
	url        string
	httpClient *httputil.Client
	now        func() time.Time
}

type webhookPayload struct {
	Subject   string    `json:"subject"`
	Text      string    `json:"text"`
	Matches   int       `json:"matches"`
	Results   any       `json:"results"`
	Timestamp time.Time `json:"timestamp"`
}

// NewWebhookChannel creates a webhook channel
func NewWebhookChannel(url string, httpClient *httputil.Client) *WebhookChannel {
	return &WebhookChannel{url: url, httpClient: httpClient, now: time.Now}
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) Send(ctx context.Context, msg Message) error {
	resp, err := c.httpClient.PostJSON(ctx, c.url, webhookPayload{
		Subject:   msg.Subject,
		Text:      msg.Text,
		Matches:   len(msg.Results),
		Results:   msg.Results,
		Timestamp: c.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook: unexpected status %d: %s", resp.StatusCode, body)
	}
	return nil
}
