package maildrop

import (
	"path/filepath"
	"testing"
	"time"
)

func TestRateLimiterWithinLimit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ratelimit")
	rl := NewRateLimiter(dir, 3, 1*time.Hour)

	for i := 0; i < 3; i++ {
		if err := rl.Check("orders@grubhub.com"); err != nil {
			t.Fatalf("message %d should be allowed: %v", i+1, err)
		}
	}
	if err := rl.Check("Orders@GrubHub.com"); err == nil {
		t.Error("4th message should be rate-limited regardless of address case")
	}
}

func TestRateLimiterWindowExpiration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ratelimit")
	rl := NewRateLimiter(dir, 1, time.Hour)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if err := rl.Check("orders@grubhub.com"); err != nil {
		t.Fatal(err)
	}
	if err := rl.Check("orders@grubhub.com"); err == nil {
		t.Fatal("second message inside the window should be limited")
	}

	now = now.Add(61 * time.Minute)
	if err := rl.Check("orders@grubhub.com"); err != nil {
		t.Errorf("message after window should be allowed: %v", err)
	}
}

func TestRateLimiterPerSender(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ratelimit")
	rl := NewRateLimiter(dir, 1, 1*time.Hour)

	if err := rl.Check("orders@grubhub.com"); err != nil {
		t.Fatal(err)
	}
	if err := rl.Check("receipts@squareup.com"); err != nil {
		t.Errorf("different sender should have separate limit: %v", err)
	}
}

func TestRateLimiterSurvivesRestart(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ratelimit")
	if err := NewRateLimiter(dir, 1, time.Hour).Check("a@b.c"); err != nil {
		t.Fatal(err)
	}
	if err := NewRateLimiter(dir, 1, time.Hour).Check("a@b.c"); err == nil {
		t.Error("state should persist across limiter instances")
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(t.TempDir(), 0, 0)
	if rl.limit != defaultRateLimit {
		t.Errorf("default limit = %d, want %d", rl.limit, defaultRateLimit)
	}
	if rl.window != defaultRateWindow {
		t.Errorf("default window = %v, want %v", rl.window, defaultRateWindow)
	}
}
