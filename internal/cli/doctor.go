package cli

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/orderprint/internal/config"
	"github.com/ppiankov/orderprint/internal/systemd"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and diagnose setup issues",
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []checkResult

	// 1. Config file.
	path := config.ResolvePath(configPath)
	if _, err := os.Stat(path); err == nil {
		checks = append(checks, checkResult{label: "config file", ok: true, detail: path})
	} else {
		checks = append(checks, checkResult{label: "config file", ok: true, detail: "not found, using defaults"})
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		checks = append(checks, checkResult{label: "config", ok: false, detail: err.Error(), fix: "fix the YAML syntax"})
		return printChecks(cmd, checks)
	}
	if err := cfg.Validate(); err != nil {
		checks = append(checks, checkResult{label: "config", ok: false, detail: err.Error()})
	} else {
		checks = append(checks, checkResult{label: "config", ok: true, detail: "valid"})
	}

	// 2. Sources.
	var labels []string
	for _, s := range cfg.Sources {
		labels = append(labels, fmt.Sprintf("%s=%s", s.Label, s.Format))
	}
	checks = append(checks, checkResult{
		label:  "sources",
		ok:     len(labels) > 0,
		detail: strings.Join(labels, ", "),
		fix:    "add at least one entry under sources:",
	})

	// 3. Mailbox.
	checks = append(checks, mailCheck(cfg.Mail))
	if cfg.Mail.AllowlistFile != "" {
		if _, err := os.Stat(cfg.Mail.AllowlistFile); err == nil {
			checks = append(checks, checkResult{label: "allowlist file", ok: true, detail: cfg.Mail.AllowlistFile})
		} else {
			checks = append(checks, checkResult{label: "allowlist file", ok: false, detail: "missing", fix: "create " + cfg.Mail.AllowlistFile})
		}
	}

	// 4. Listen port.
	if ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port)); err == nil {
		_ = ln.Close()
		checks = append(checks, checkResult{label: "http port", ok: true, detail: fmt.Sprintf(":%d available", cfg.Port)})
	} else {
		checks = append(checks, checkResult{label: "http port", ok: false, detail: fmt.Sprintf(":%d in use", cfg.Port), fix: "set port: or $PORT"})
	}

	// 5. Journal directory.
	if cfg.AuditLog != "" {
		dir := filepath.Dir(cfg.AuditLog)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			checks = append(checks, checkResult{label: "audit log", ok: true, detail: cfg.AuditLog})
		} else {
			checks = append(checks, checkResult{label: "audit log", ok: false, detail: "directory missing", fix: "mkdir -p " + dir})
		}
	}

	// 6. Optional sinks.
	checks = append(checks, checkResult{label: "order history", ok: true, detail: enabled(cfg.History.DSN != "")})
	checks = append(checks, checkResult{label: "job archive", ok: true, detail: enabled(cfg.Archive.Bucket != "")})
	checks = append(checks, checkResult{label: "alerts", ok: true, detail: fmt.Sprintf("%d webhooks", len(cfg.Alerts))})

	// 7. systemd (Linux only).
	if runtime.GOOS == "linux" {
		checks = append(checks, unitCheck())
	}

	return printChecks(cmd, checks)
}

func unitCheck() checkResult {
	if _, err := os.Stat(systemd.UnitFilePath); err != nil {
		return checkResult{label: "systemd unit", ok: true, detail: "not installed"}
	}
	if drift := systemd.CheckUnitFile(); drift != "" {
		return checkResult{label: "systemd unit", ok: false, detail: drift, fix: "sudo orderprint systemd --install"}
	}
	return checkResult{label: "systemd unit", ok: true, detail: systemd.UnitFilePath}
}

func mailCheck(m config.Mail) checkResult {
	switch m.Backend {
	case config.BackendSpool:
		if info, err := os.Stat(m.SpoolDir); err == nil && info.IsDir() {
			return checkResult{label: "mailbox", ok: true, detail: "spool " + m.SpoolDir}
		}
		return checkResult{label: "mailbox", ok: false, detail: "spool directory missing", fix: "mkdir -p " + m.SpoolDir}
	case config.BackendGmail:
		var missing []string
		if m.ClientID == "" {
			missing = append(missing, "CLIENT_ID")
		}
		if m.ClientSecret == "" {
			missing = append(missing, "CLIENT_SECRET")
		}
		if m.RefreshToken == "" {
			missing = append(missing, "REFRESH_TOKEN")
		}
		if len(missing) > 0 {
			return checkResult{label: "mailbox", ok: false, detail: "gmail credentials missing: " + strings.Join(missing, ", "), fix: "export " + missing[0]}
		}
		return checkResult{label: "mailbox", ok: true, detail: "gmail"}
	default:
		return checkResult{label: "mailbox", ok: false, detail: "unknown backend " + m.Backend}
	}
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

func printChecks(cmd *cobra.Command, checks []checkResult) error {
	out := cmd.OutOrStdout()
	hasFailures := false
	for _, c := range checks {
		mark := "\u2713" // ✓
		if !c.ok {
			mark = "\u2717" // ✗
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-16s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Fprintln(out, line)
	}

	if hasFailures {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Some checks failed. Run the suggested commands to fix.")
		return fmt.Errorf("doctor found issues")
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "All checks passed.")
	return nil
}
