package mailbox

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Allowlist restricts which senders may produce print jobs.
// A nil or empty allowlist admits everyone.
type Allowlist struct {
	patterns []string
}

// NewAllowlist builds an allowlist from exact addresses and "@domain"
// wildcards.
func NewAllowlist(patterns []string) *Allowlist {
	a := &Allowlist{}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			a.patterns = append(a.patterns, p)
		}
	}
	return a
}

// LoadAllowlist reads one pattern per line. Blank lines and lines starting
// with # are ignored.
func LoadAllowlist(path string) (*Allowlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open allowlist: %w", err)
	}
	defer func() { _ = f.Close() }()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read allowlist: %w", err)
	}
	return NewAllowlist(patterns), nil
}

// Empty reports whether the allowlist admits every sender.
func (a *Allowlist) Empty() bool {
	return a == nil || len(a.patterns) == 0
}

// Patterns returns the normalized patterns.
func (a *Allowlist) Patterns() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.patterns...)
}

// IsAllowed reports whether sender matches a pattern. "@example.com"
// matches any address at that domain but not at its subdomains.
func (a *Allowlist) IsAllowed(sender string) bool {
	if a.Empty() {
		return true
	}
	sender = strings.ToLower(strings.TrimSpace(sender))
	if sender == "" {
		return false
	}
	for _, p := range a.patterns {
		if p == sender {
			return true
		}
		if strings.HasPrefix(p, "@") && strings.HasSuffix(sender, p) {
			return true
		}
	}
	return false
}
