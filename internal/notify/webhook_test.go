package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendDisabledIsNoOp(t *testing.T) {
	notifier := NewWebhookNotifier("", 0)
	if notifier.Enabled() {
		t.Fatal("empty url must disable the notifier")
	}
	if err := notifier.Send(context.Background(), "referral.awarded", map[string]int{"x": 1}); err != nil {
		t.Fatalf("disabled send must be a no-op, got %v", err)
	}
}

func TestSendDeliversEnvelope(t *testing.T) {
	var received Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, 1000)
	err := notifier.Send(context.Background(), "task.completed", map[string]int64{"participant_id": 7})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if received.Event != "task.completed" {
		t.Fatalf("event = %q, want task.completed", received.Event)
	}
	if received.SentAt == 0 {
		t.Fatal("sent_at not stamped")
	}
}

func TestSendNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, 1000)
	if err := notifier.Send(context.Background(), "participant.departed", nil); err == nil {
		t.Fatal("non-2xx response must surface as an error for retry")
	}
}
