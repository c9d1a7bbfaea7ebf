package cli

import (
	"context"
	"fmt"

	"github.com/ppiankov/orderprint/internal/config"
	"github.com/ppiankov/orderprint/internal/mailbox"
	"github.com/ppiankov/orderprint/internal/poller"
)

// loadConfig loads and validates the configuration named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newMailClient(ctx context.Context, m config.Mail) (mailbox.Client, error) {
	switch m.Backend {
	case config.BackendSpool:
		return mailbox.NewSpool(m.SpoolDir)
	default:
		return mailbox.NewGmail(ctx, mailbox.Credentials{
			ClientID:     m.ClientID,
			ClientSecret: m.ClientSecret,
			RefreshToken: m.RefreshToken,
		})
	}
}

// allowlistFrom merges inline patterns with the allowlist file. Neither
// configured means every sender is allowed.
func allowlistFrom(m config.Mail) (*mailbox.Allowlist, error) {
	patterns := append([]string(nil), m.Allowlist...)
	if m.AllowlistFile != "" {
		fromFile, err := mailbox.LoadAllowlist(m.AllowlistFile)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, fromFile.Patterns()...)
	}
	return mailbox.NewAllowlist(patterns), nil
}

func sourcesFrom(cfg *config.Config) []poller.Source {
	out := make([]poller.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		out = append(out, poller.Source{Name: s.SourceName(), Label: s.Label, Format: s.Format})
	}
	return out
}
