package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/orderprint/internal/extract"
	"github.com/ppiankov/orderprint/internal/mailbox"
	"github.com/ppiankov/orderprint/internal/poller"
	"github.com/ppiankov/orderprint/internal/receipt"
)

var (
	renderFormat  string
	renderColumns int
	renderRaw     bool
	renderJSON    bool
)

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "", "Source format (grubhub, square); detected from the sender when empty")
	renderCmd.Flags().IntVar(&renderColumns, "columns", receipt.DefaultColumns, "Printer line width")
	renderCmd.Flags().BoolVar(&renderRaw, "raw", false, "Write the StarPRNT bytes instead of a readable preview")
	renderCmd.Flags().BoolVar(&renderJSON, "json", false, "Print the extracted order as JSON")
}

var renderCmd = &cobra.Command{
	Use:   "render <message.eml>",
	Short: "Render a saved order mail as a ticket",
	Long: "Runs a saved .eml file through the same extraction and rendering as the\n" +
		"poller and prints a readable preview of the ticket. Nothing is queued.",
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read message: %w", err)
	}
	msg, err := mailbox.ParseEML(raw)
	if err != nil {
		return err
	}

	format := renderFormat
	if format == "" {
		if format = detectFormat(msg.Sender()); format == "" {
			return fmt.Errorf("cannot detect format from sender %q; use --format", msg.Sender())
		}
	}

	o, extractor, err := extract.DefaultRegistry().Extract(format, poller.Document(msg))
	if err != nil {
		return err
	}
	job := receipt.New(renderColumns).Render(o)
	out := cmd.OutOrStdout()

	switch {
	case renderRaw:
		_, err = out.Write(job)
		return err
	case renderJSON:
		data, _ := json.MarshalIndent(map[string]any{
			"extractor": extractor,
			"degraded":  o.Degraded(),
			"order":     o,
		}, "", "  ")
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "extractor: %s (%d bytes)\n\n", extractor, len(job))
	fmt.Fprintln(out, receipt.Preview(job))
	if o.Degraded() {
		fmt.Fprintln(out, "\nwarning: order is degraded, customer or items missing")
	}
	return nil
}

// detectFormat guesses the source format from the sender's domain.
func detectFormat(sender string) string {
	_, domain, _ := strings.Cut(sender, "@")
	switch {
	case strings.Contains(domain, "grubhub"):
		return extract.FormatGrubHub
	case strings.Contains(domain, "square"):
		return extract.FormatSquare
	default:
		return ""
	}
}
