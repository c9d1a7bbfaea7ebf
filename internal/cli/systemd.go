package cli

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ppiankov/orderprint/internal/systemd"
)

var (
	unitInstall bool
	unitBinary  string
	unitUser    string
	unitEnvFile string
	unitState   string
)

func init() {
	systemdCmd.Flags().BoolVar(&unitInstall, "install", false, "Install the unit and run daemon-reload (requires root)")
	systemdCmd.Flags().StringVar(&unitBinary, "binary", "/usr/local/bin/orderprint", "Path to the orderprint binary")
	systemdCmd.Flags().StringVar(&unitUser, "user", "orderprint", "User the service runs as")
	systemdCmd.Flags().StringVar(&unitEnvFile, "env-file", "", "EnvironmentFile holding CLIENT_ID, CLIENT_SECRET and REFRESH_TOKEN")
	systemdCmd.Flags().StringVar(&unitState, "state-dir", "/var/lib/orderprint", "Writable state directory for the job journal")
	rootCmd.AddCommand(systemdCmd)
}

var systemdCmd = &cobra.Command{
	Use:   "systemd",
	Short: "Print or install the orderprint.service unit",
	Long: `Renders a hardened systemd unit that runs "orderprint serve".

Without --install the unit is printed to stdout. With --install it is written
to /etc/systemd/system/orderprint.service and its hash is recorded so that
"orderprint doctor" can report later edits.`,
	RunE: runSystemd,
}

func runSystemd(cmd *cobra.Command, args []string) error {
	opts := systemd.UnitOptions{
		Binary:          unitBinary,
		ConfigPath:      configPath,
		EnvironmentFile: unitEnvFile,
		User:            unitUser,
		StateDir:        unitState,
	}
	if cfg, err := loadConfig(); err == nil && cfg.Mail.SpoolDir != "" {
		opts.SpoolDir = cfg.Mail.SpoolDir
	}
	unit := systemd.ServiceUnit(opts)

	if !unitInstall {
		fmt.Fprint(cmd.OutOrStdout(), unit)
		return nil
	}

	if runtime.GOOS != "linux" {
		return fmt.Errorf("--install is only supported on Linux")
	}
	if os.Geteuid() != 0 {
		return fmt.Errorf("--install requires root; run with sudo")
	}
	if err := os.MkdirAll(unitState, 0750); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := systemd.Install(unit); err != nil {
		return err
	}
	if err := exec.Command("systemctl", "daemon-reload").Run(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: systemctl daemon-reload failed: %v\n", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "installed %s\n", systemd.UnitFilePath)
	fmt.Fprintln(cmd.OutOrStdout(), "enable with: sudo systemctl enable --now orderprint")
	return nil
}
