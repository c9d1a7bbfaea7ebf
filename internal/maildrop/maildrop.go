// Package maildrop delivers mail piped from an MTA into the spool that the
// poller reads, so orderprint can run against Postfix instead of Gmail.
//
// Usage in /etc/aliases:
//
//	orders: |/usr/local/bin/orderprint-maildrop
package maildrop

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/orderprint/internal/mailbox"
)

// ErrNotAllowed is returned for senders outside the allowlist.
var ErrNotAllowed = errors.New("sender not allowed")

// DefaultRoutes maps sender domains to the labels polled by default.
var DefaultRoutes = map[string]string{
	"grubhub.com":  "GH_PRINT",
	"squareup.com": "SQ_PRINT",
}

// Config holds maildrop delivery configuration.
type Config struct {
	SpoolDir string
	// Label forces every message into one label. When empty the label is
	// chosen from Routes by sender domain.
	Label        string
	Routes       map[string]string
	Allowlist    *mailbox.Allowlist
	RateLimitDir string
	RateLimit    int
	RateWindow   time.Duration
}

// Deliver validates a raw message and writes it into the spool under its
// label. It returns the path of the spooled file.
func Deliver(cfg Config, raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("empty message")
	}
	msg, err := mailbox.ParseEML(raw)
	if err != nil {
		return "", err
	}
	sender := msg.Sender()
	if sender == "" {
		return "", fmt.Errorf("message has no valid From address")
	}
	if !cfg.Allowlist.IsAllowed(sender) {
		return "", fmt.Errorf("%w: %s", ErrNotAllowed, sender)
	}

	label := cfg.Label
	if label == "" {
		routes := cfg.Routes
		if routes == nil {
			routes = DefaultRoutes
		}
		if label = Route(routes, sender); label == "" {
			return "", fmt.Errorf("no label route for %s", sender)
		}
	}
	if strings.ContainsAny(label, `/\`) || strings.HasPrefix(label, ".") {
		return "", fmt.Errorf("invalid label %q", label)
	}

	if cfg.RateLimitDir != "" {
		rl := NewRateLimiter(cfg.RateLimitDir, cfg.RateLimit, cfg.RateWindow)
		if err := rl.Check(sender); err != nil {
			return "", err
		}
	}

	dir := filepath.Join(cfg.SpoolDir, label)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create spool dir: %w", err)
	}

	// Names sort by arrival so the spool hands out the oldest mail first.
	sum := sha256.Sum256(raw)
	name := time.Now().UTC().Format("20060102T150405.000000000") + "-" + hex.EncodeToString(sum[:4]) + ".eml"
	path := filepath.Join(dir, name)
	tmp := filepath.Join(dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return "", fmt.Errorf("write message: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("spool message: %w", err)
	}
	return path, nil
}

// Route returns the label for sender's domain. A route key matches the
// domain itself and any of its subdomains.
func Route(routes map[string]string, sender string) string {
	_, domain, ok := strings.Cut(strings.ToLower(sender), "@")
	if !ok {
		return ""
	}
	for suffix, label := range routes {
		suffix = strings.ToLower(suffix)
		if domain == suffix || strings.HasSuffix(domain, "."+suffix) {
			return label
		}
	}
	return ""
}
