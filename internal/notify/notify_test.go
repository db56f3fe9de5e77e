package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendNoOpWithoutWebhookURL(t *testing.T) {
	n := New(Config{})
	sent, err := n.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent {
		t.Error("sent = true with no webhook URL configured, want false")
	}
}

func TestSendPostsJSONPayload(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(Config{WebhookURL: srv.URL, Channel: "#releases"})
	sent, err := n.Send(context.Background(), "published demo 1.0.0")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !sent {
		t.Error("sent = false, want true")
	}
	if got.Channel != "#releases" || got.Text != "published demo 1.0.0" {
		t.Errorf("payload = %+v", got)
	}
}

func TestSendNonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(Config{WebhookURL: srv.URL})
	if _, err := n.Send(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for non-200 webhook response")
	}
}

func TestOverrideWithPrefersNonEmptyFields(t *testing.T) {
	base := Config{WebhookURL: "https://base", Channel: "#base"}
	override := Config{Channel: "#override"}
	got := base.OverrideWith(override)
	if got.WebhookURL != "https://base" || got.Channel != "#override" {
		t.Errorf("got %+v", got)
	}
}

func TestPublishAndSyncMessages(t *testing.T) {
	if got, want := PublishMessage("demo", "1.0.0"), "published demo 1.0.0"; got != want {
		t.Errorf("PublishMessage() = %q, want %q", got, want)
	}
	if got, want := SyncMessage("demo", "1.0.0", "/tmp/demo"), "synced demo to 1.0.0 at /tmp/demo"; got != want {
		t.Errorf("SyncMessage() = %q, want %q", got, want)
	}
}
