package alert

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func init() {
	retryDelay = 10 * time.Millisecond
}

func countingServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var called atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &called
}

func TestDispatchMatchesEvents(t *testing.T) {
	srv, called := countingServer(t, http.StatusOK)

	d := NewDispatcher([]AlertConfig{
		{URL: srv.URL, Format: "generic", Events: []string{EventDegradedOrder}},
	})
	d.Dispatch(AlertEvent{Type: EventDegradedOrder, Source: "grubhub", Customer: "UNKNOWN"})
	d.Wait()

	if called.Load() != 1 {
		t.Errorf("expected 1 call, got %d", called.Load())
	}
}

func TestDispatchSkipsNonMatching(t *testing.T) {
	srv, called := countingServer(t, http.StatusOK)

	d := NewDispatcher([]AlertConfig{
		{URL: srv.URL, Format: "generic", Events: []string{EventCheckFailed}},
	})
	d.Dispatch(AlertEvent{Type: EventDegradedOrder, Source: "square"})
	d.Wait()

	if called.Load() != 0 {
		t.Errorf("expected 0 calls for non-matching event, got %d", called.Load())
	}
}

func TestDispatchMultipleWebhooks(t *testing.T) {
	srv1, called1 := countingServer(t, http.StatusOK)
	srv2, called2 := countingServer(t, http.StatusOK)

	d := NewDispatcher([]AlertConfig{
		{URL: srv1.URL, Format: "generic", Events: []string{EventCheckFailed}},
		{URL: srv2.URL, Format: "slack", Events: []string{"*"}},
	})
	d.Dispatch(AlertEvent{Type: EventCheckFailed, Source: "square", Reason: "fetch: timeout"})
	d.Wait()

	if called1.Load() != 1 || called2.Load() != 1 {
		t.Errorf("expected both webhooks to be called, got %d and %d", called1.Load(), called2.Load())
	}
}

func TestDispatchLogsFailures(t *testing.T) {
	srv, _ := countingServer(t, http.StatusForbidden)

	var mu sync.Mutex
	var buf bytes.Buffer
	d := NewDispatcher([]AlertConfig{{URL: srv.URL, Events: []string{EventCheckFailed}}})
	d.SetLog(writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(p)
	}))
	d.Dispatch(AlertEvent{Type: EventCheckFailed})
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(buf.String(), "alert: check_failed") || !strings.Contains(buf.String(), "HTTP 403") {
		t.Errorf("log = %q", buf.String())
	}
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(AlertEvent{Type: EventCheckFailed})
	d.SetLog(nil)
	d.Wait()
}

func TestRetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "secret" {
			t.Errorf("custom header not forwarded")
		}
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := AlertConfig{URL: srv.URL, Headers: map[string]string{"X-Token": "secret"}}
	if err := Send(cfg, AlertEvent{Type: EventCheckFailed}); err != nil {
		t.Errorf("expected success after retries, got: %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestGiveUpAfterRetries(t *testing.T) {
	srv, called := countingServer(t, http.StatusBadGateway)

	err := Send(AlertConfig{URL: srv.URL}, AlertEvent{Type: EventCheckFailed})
	if err == nil || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("err = %v", err)
	}
	if called.Load() != maxRetries {
		t.Errorf("expected %d attempts, got %d", maxRetries, called.Load())
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	srv, called := countingServer(t, http.StatusBadRequest)

	if err := Send(AlertConfig{URL: srv.URL}, AlertEvent{Type: EventCheckFailed}); err == nil {
		t.Error("expected error on 400, got nil")
	}
	if called.Load() != 1 {
		t.Errorf("expected 1 attempt (no retry on 4xx), got %d", called.Load())
	}
}

func TestSendRequiresURL(t *testing.T) {
	if err := Send(AlertConfig{}, AlertEvent{}); err == nil {
		t.Error("expected error for empty url")
	}
}

func TestFormatGenericJSON(t *testing.T) {
	event := AlertEvent{
		Timestamp: "2026-01-15T14:00:00.000Z",
		Type:      EventDegradedOrder,
		Source:    "grubhub",
		MessageID: "18c2f",
		Customer:  "UNKNOWN",
		Extractor: "grubhub-text",
		Reason:    "no items",
	}

	data, err := FormatPayload("generic", event)
	if err != nil {
		t.Fatal(err)
	}

	var parsed AlertEvent
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("generic format is not valid JSON: %v", err)
	}
	if parsed != event {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestFormatSlackBlockKit(t *testing.T) {
	event := AlertEvent{
		Type:      EventDegradedOrder,
		Source:    "square",
		Customer:  "Ada",
		Extractor: "square-text",
		Reason:    "no items",
	}

	data, err := FormatPayload("slack", event)
	if err != nil {
		t.Fatal(err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("slack format is not valid JSON: %v", err)
	}
	blocks, ok := parsed["blocks"].([]any)
	if !ok || len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %v", parsed["blocks"])
	}

	header, _ := blocks[0].(map[string]any)
	text, _ := header["text"].(map[string]any)
	if text["text"] != "orderprint: degraded_order" {
		t.Errorf("header text = %v", text["text"])
	}

	section, _ := blocks[1].(map[string]any)
	fields, ok := section["fields"].([]any)
	if !ok || len(fields) != 4 {
		t.Errorf("expected 4 fields in section, got %v", fields)
	}
}

func TestFormatPagerDuty(t *testing.T) {
	tests := []struct {
		eventType string
		severity  string
	}{
		{EventCheckFailed, "error"},
		{EventDegradedOrder, "warning"},
		{"other", "info"},
	}
	for _, tt := range tests {
		data, err := FormatPayload("pagerduty", AlertEvent{Type: tt.eventType, Source: "grubhub"})
		if err != nil {
			t.Fatal(err)
		}

		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("pagerduty format is not valid JSON: %v", err)
		}
		if parsed["event_action"] != "trigger" {
			t.Errorf("expected event_action trigger, got %v", parsed["event_action"])
		}
		payload, ok := parsed["payload"].(map[string]any)
		if !ok {
			t.Fatal("expected payload object")
		}
		if payload["severity"] != tt.severity {
			t.Errorf("%s: severity = %v, want %s", tt.eventType, payload["severity"], tt.severity)
		}
		if payload["source"] != "orderprint" {
			t.Errorf("expected source orderprint, got %v", payload["source"])
		}
	}
}

func TestNewDispatcherNilOnEmpty(t *testing.T) {
	if NewDispatcher(nil) != nil {
		t.Error("expected nil dispatcher for empty configs")
	}
	if NewDispatcher([]AlertConfig{}) != nil {
		t.Error("expected nil dispatcher for zero-length configs")
	}
}
