package maildrop

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// defaultRateLimit is the maximum messages per sender per window.
const defaultRateLimit = 120

// defaultRateWindow is the time window for rate limiting.
const defaultRateWindow = 1 * time.Hour

// RateLimiter caps spooled messages per sender. State lives in files so it
// survives across maildrop invocations.
type RateLimiter struct {
	stateDir string
	limit    int
	window   time.Duration
	now      func() time.Time
}

type rateState struct {
	Timestamps []time.Time `json:"timestamps"`
}

// NewRateLimiter creates a rate limiter with per-sender state tracking.
func NewRateLimiter(stateDir string, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if window <= 0 {
		window = defaultRateWindow
	}
	return &RateLimiter{stateDir: stateDir, limit: limit, window: window, now: time.Now}
}

// Check returns nil if the sender is within its limit and records the
// attempt.
func (r *RateLimiter) Check(sender string) error {
	if err := os.MkdirAll(r.stateDir, 0750); err != nil {
		return fmt.Errorf("create rate limit dir: %w", err)
	}
	sender = strings.ToLower(strings.TrimSpace(sender))
	path := r.statePath(sender)
	now := r.now().UTC()

	var recent []time.Time
	for _, ts := range r.load(path) {
		if now.Sub(ts) < r.window {
			recent = append(recent, ts)
		}
	}
	if len(recent) >= r.limit {
		return fmt.Errorf("rate limit exceeded: %d messages in the last %s from %s",
			len(recent), r.window, sender)
	}

	data, err := json.Marshal(rateState{Timestamps: append(recent, now)})
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("save rate state: %w", err)
	}
	return os.Rename(tmp, path)
}

// statePath hashes the sender so addresses never become file names.
func (r *RateLimiter) statePath(sender string) string {
	h := sha256.Sum256([]byte(sender))
	return filepath.Join(r.stateDir, hex.EncodeToString(h[:8])+".json")
}

func (r *RateLimiter) load(path string) []time.Time {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var s rateState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	return s.Timestamps
}
