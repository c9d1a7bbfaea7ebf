// orderprint-maildrop reads an email from stdin and drops it into the
// orderprint spool. Designed to be called by Postfix or sendmail as a pipe
// transport when orderprint runs with the spool mail backend.
//
// Usage in /etc/aliases:
//
//	orders: |/usr/local/bin/orderprint-maildrop
//
// Environment variables:
//
//	ORDERPRINT_SPOOL      spool directory (default: /var/spool/orderprint)
//	ORDERPRINT_LABEL      force a label instead of routing by sender domain
//	ORDERPRINT_ALLOWLIST  sender allowlist file (default: none, all senders)
//	ORDERPRINT_STATE      state directory for rate limiting (default: /var/lib/orderprint)
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/orderprint/internal/mailbox"
	"github.com/ppiankov/orderprint/internal/maildrop"
)

func main() {
	cfg := maildrop.Config{
		SpoolDir:     envOrDefault("ORDERPRINT_SPOOL", "/var/spool/orderprint"),
		Label:        os.Getenv("ORDERPRINT_LABEL"),
		RateLimitDir: filepath.Join(envOrDefault("ORDERPRINT_STATE", "/var/lib/orderprint"), "ratelimit"),
		RateWindow:   1 * time.Hour,
	}

	if path := os.Getenv("ORDERPRINT_ALLOWLIST"); path != "" {
		allow, err := mailbox.LoadAllowlist(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "orderprint-maildrop: %v\n", err)
			os.Exit(1)
		}
		cfg.Allowlist = allow
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orderprint-maildrop: read stdin: %v\n", err)
		os.Exit(1)
	}

	path, err := maildrop.Deliver(cfg, raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orderprint-maildrop: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "orderprint-maildrop: spooled %s\n", path)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
