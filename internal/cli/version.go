package cli

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X ...cli.version=".
var version = "0.4.0"

var versionShort bool

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		if versionShort {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return
		}
		out, _ := json.MarshalIndent(buildInfo(), "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	},
}

func buildInfo() map[string]string {
	info := map[string]string{
		"name":    "orderprint",
		"version": version,
		"go":      runtime.Version(),
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info["commit"] = s.Value
		case "vcs.time":
			info["built"] = s.Value
		}
	}
	return info
}
