// Package systemd renders and checks the unit file that runs orderprint
// as a service.
package systemd

import (
	"fmt"
	"strings"
)

// UnitOptions fill in the service unit.
type UnitOptions struct {
	Binary     string
	ConfigPath string
	// EnvironmentFile holds CLIENT_ID, CLIENT_SECRET and REFRESH_TOKEN so
	// they stay out of the unit and the config file.
	EnvironmentFile string
	User            string
	// SpoolDir is made writable when the spool backend is used.
	SpoolDir string
	// StateDir is made writable for the job journal.
	StateDir string
}

// ServiceUnit returns the orderprint.service unit.
func ServiceUnit(o UnitOptions) string {
	if o.Binary == "" {
		o.Binary = "/usr/local/bin/orderprint"
	}
	if o.User == "" {
		o.User = "orderprint"
	}

	var writable []string
	for _, d := range []string{o.SpoolDir, o.StateDir} {
		if d != "" {
			writable = append(writable, d)
		}
	}

	var b strings.Builder
	b.WriteString(`[Unit]
Description=orderprint: email orders to Star CloudPRNT
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
`)
	fmt.Fprintf(&b, "User=%s\n", o.User)
	if o.EnvironmentFile != "" {
		fmt.Fprintf(&b, "EnvironmentFile=%s\n", o.EnvironmentFile)
	}
	exec := o.Binary + " serve"
	if o.ConfigPath != "" {
		exec += " --config " + o.ConfigPath
	}
	fmt.Fprintf(&b, "ExecStart=%s\n", exec)
	b.WriteString(`Restart=on-failure
RestartSec=2
NoNewPrivileges=true
PrivateTmp=true
ProtectSystem=strict
ProtectHome=true
`)
	if len(writable) > 0 {
		fmt.Fprintf(&b, "ReadWritePaths=%s\n", strings.Join(writable, " "))
	}
	b.WriteString(`
[Install]
WantedBy=multi-user.target
`)
	return b.String()
}
