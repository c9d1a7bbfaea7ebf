package maildrop

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/orderprint/internal/mailbox"
)

func message(from string) []byte {
	return []byte("From: " + from + "\r\nSubject: Order\r\nContent-Type: text/plain\r\n\r\nDozen Box\r\n$12.00\r\n")
}

func TestDeliverRoutesBySender(t *testing.T) {
	spool := t.TempDir()
	cfg := Config{SpoolDir: spool}

	path, err := Deliver(cfg, message("Square <receipts@messaging.squareup.com>"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(filepath.Dir(path)) != "SQ_PRINT" || !strings.HasSuffix(path, ".eml") {
		t.Errorf("path = %q", path)
	}

	s, err := mailbox.NewSpool(spool)
	if err != nil {
		t.Fatal(err)
	}
	ids, err := s.Unread(context.Background(), "SQ_PRINT", 10)
	if err != nil || len(ids) != 1 {
		t.Fatalf("unread = %q, %v", ids, err)
	}
	m, err := s.Fetch(context.Background(), ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if m.Sender() != "receipts@messaging.squareup.com" {
		t.Errorf("sender = %q", m.Sender())
	}

	entries, _ := os.ReadDir(filepath.Join(spool, "SQ_PRINT"))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestDeliverForcedLabel(t *testing.T) {
	spool := t.TempDir()
	path, err := Deliver(Config{SpoolDir: spool, Label: "GH_PRINT"}, message("someone@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(filepath.Dir(path)) != "GH_PRINT" {
		t.Errorf("path = %q", path)
	}
}

func TestDeliverRejects(t *testing.T) {
	spool := t.TempDir()
	allow := mailbox.NewAllowlist([]string{"@grubhub.com"})

	_, err := Deliver(Config{SpoolDir: spool, Allowlist: allow}, message("evil@example.com"))
	if !errors.Is(err, ErrNotAllowed) {
		t.Errorf("err = %v, want ErrNotAllowed", err)
	}

	if _, err := Deliver(Config{SpoolDir: spool}, message("someone@example.com")); err == nil {
		t.Error("expected error when no route matches")
	}
	if _, err := Deliver(Config{SpoolDir: spool}, nil); err == nil {
		t.Error("expected error for empty message")
	}
	if _, err := Deliver(Config{SpoolDir: spool}, []byte("Subject: x\r\n\r\nbody")); err == nil {
		t.Error("expected error for missing From")
	}
	if _, err := Deliver(Config{SpoolDir: spool, Label: "../etc"}, message("orders@grubhub.com")); err == nil {
		t.Error("expected error for traversal label")
	}
}

func TestDeliverRateLimited(t *testing.T) {
	cfg := Config{
		SpoolDir:     t.TempDir(),
		RateLimitDir: filepath.Join(t.TempDir(), "ratelimit"),
		RateLimit:    1,
	}
	if _, err := Deliver(cfg, message("orders@grubhub.com")); err != nil {
		t.Fatal(err)
	}
	if _, err := Deliver(cfg, message("orders@grubhub.com")); err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("err = %v", err)
	}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		sender, want string
	}{
		{"orders@grubhub.com", "GH_PRINT"},
		{"orders@eat.grubhub.com", "GH_PRINT"},
		{"orders@notgrubhub.com", ""},
		{"x@messaging.squareup.com", "SQ_PRINT"},
		{"nobody", ""},
	}
	for _, tt := range tests {
		if got := Route(DefaultRoutes, tt.sender); got != tt.want {
			t.Errorf("Route(%q) = %q, want %q", tt.sender, got, tt.want)
		}
	}
}
