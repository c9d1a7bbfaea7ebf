package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/orderprint/internal/audit"
)

var (
	tailLines   int
	tailEvent   string
	tailToken   string
	tailSince   time.Duration
	tailJSON    bool
	tailSummary bool
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent entries to show")
	auditTailCmd.Flags().StringVar(&tailEvent, "event", "", "Only show entries of this event (queued, fetched, confirmed, skipped)")
	auditTailCmd.Flags().StringVar(&tailToken, "token", "", "Only show entries for this job token")
	auditTailCmd.Flags().DurationVar(&tailSince, "since", 0, "Only show entries newer than this (e.g. 2h)")
	auditTailCmd.Flags().BoolVar(&tailJSON, "json", false, "Print entries as JSON")
	auditTailCmd.Flags().BoolVar(&tailSummary, "summary", false, "Print only per-event counts")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Job journal operations",
	Long:  "Commands for verifying and inspecting the hash-chained job journal.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Verify hash chain integrity of a job journal",
	Long:  "Walks the JSONL journal and validates that every entry's prev_hash\nmatches the SHA-256 of the previous entry. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail <path>",
	Short: "Show recent journal entries",
	Long:  "Reads the last N matching entries from the JSONL journal.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditTail,
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	result := audit.Verify(args[0])
	if result.Valid {
		fmt.Fprintf(cmd.OutOrStdout(), "OK: %d entries verified\n", result.Lines)
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	return fmt.Errorf("journal verification failed")
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	f := audit.Filter{Event: tailEvent, Token: tailToken}
	if tailSince > 0 {
		f.Since = time.Now().Add(-tailSince)
	}

	n := tailLines
	if tailSummary {
		n = 0
	}
	entries, err := audit.Tail(args[0], n, f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case tailSummary:
		data, _ := json.MarshalIndent(audit.Summarize(entries), "", "  ")
		fmt.Fprintln(out, string(data))
	case tailJSON:
		for _, e := range entries {
			data, _ := json.MarshalIndent(e, "", "  ")
			fmt.Fprintln(out, string(data))
		}
	default:
		fmt.Fprint(out, audit.FormatTable(entries))
	}
	return nil
}
