// Package notify posts push/sync events to an optional Slack webhook. A
// Config with no webhook URL configured is a valid, inert Notifier: every
// send is a no-op.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Config is the [slack] section of a binrep config file. Any value being
// empty disables that piece of behavior; a zero-value Config disables
// notification entirely.
type Config struct {
	WebhookURL string `sane:"webhook_url,omitempty"`
	Channel    string `sane:"channel,omitempty"`
}

// OverrideWith returns a Config with each field from other taking
// precedence when set, falling back to c's own values otherwise —
// letting a CLI-level webhook override a configured default.
func (c Config) OverrideWith(other Config) Config {
	out := c
	if other.WebhookURL != "" {
		out.WebhookURL = other.WebhookURL
	}
	if other.Channel != "" {
		out.Channel = other.Channel
	}
	return out
}

// payload is the subset of Slack's incoming-webhook JSON body binrep
// needs: a channel override and message text.
type payload struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
}

// Notifier posts messages to a configured Slack webhook.
type Notifier struct {
	cfg    Config
	client *http.Client
}

// New returns a Notifier for cfg. A Notifier for a Config with no
// WebhookURL is safe to use; Send becomes a no-op.
func New(cfg Config) *Notifier {
	return &Notifier{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

// Send posts text to the configured webhook. It returns (false, nil)
// without making a request when no webhook URL is configured, matching
// the "notification is optional" contract every caller relies on.
func (n *Notifier) Send(ctx context.Context, text string) (bool, error) {
	if n.cfg.WebhookURL == "" {
		return false, nil
	}

	body, err := json.Marshal(payload{Channel: n.cfg.Channel, Text: text})
	if err != nil {
		return false, fmt.Errorf("notify: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("notify: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	return true, nil
}

// PublishMessage formats the standard notification text for a completed
// publish.
func PublishMessage(artifactName, version string) string {
	return fmt.Sprintf("published %s %s", artifactName, version)
}

// SyncMessage formats the standard notification text for a sync that
// changed the destination.
func SyncMessage(artifactName, version, destDir string) string {
	return fmt.Sprintf("synced %s to %s at %s", artifactName, version, destDir)
}
