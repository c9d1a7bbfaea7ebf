package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/orderprint/internal/alert"
	"github.com/ppiankov/orderprint/internal/archive"
	"github.com/ppiankov/orderprint/internal/audit"
	"github.com/ppiankov/orderprint/internal/cloudprnt"
	"github.com/ppiankov/orderprint/internal/config"
	"github.com/ppiankov/orderprint/internal/health"
	"github.com/ppiankov/orderprint/internal/history"
	"github.com/ppiankov/orderprint/internal/poller"
	"github.com/ppiankov/orderprint/internal/queue"
)

var (
	servePort      int
	serveTestRoute bool
	serveAuditLog  string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "CloudPRNT HTTP listen port (overrides config and $PORT)")
	serveCmd.Flags().BoolVar(&serveTestRoute, "test-route", false, "Enable GET /createjob, which queues a sample ticket")
	serveCmd.Flags().StringVar(&serveAuditLog, "audit-log", "", "Path to job journal JSONL file (overrides config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll the mailbox and serve print jobs over CloudPRNT",
	Long: "Checks the configured mail labels on an interval, queues one ticket per\n" +
		"order mail and serves the queue to polling Star printers.\n" +
		"Supports hot-reload of the config file's sources and allowlist.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if serveTestRoute {
		cfg.TestRoute = true
	}
	if serveAuditLog != "" {
		cfg.AuditLog = serveAuditLog
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newMailClient(ctx, cfg.Mail)
	if err != nil {
		return fmt.Errorf("failed to open mailbox: %w", err)
	}
	allow, err := allowlistFrom(cfg.Mail)
	if err != nil {
		return err
	}

	q := queue.New()
	pcfg := poller.Config{
		Sources:   sourcesFrom(cfg),
		Allowlist: allow,
		Interval:  cfg.PollInterval,
		Columns:   cfg.Printer.Columns,
		Log:       os.Stderr,
	}
	hcfg := cloudprnt.Config{
		Port:      cfg.Port,
		TestRoute: cfg.TestRoute,
		Log:       os.Stderr,
	}

	if cfg.AuditLog != "" {
		auditLog, err := audit.Open(cfg.AuditLog)
		if err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		defer auditLog.Close()
		pcfg.Journal = auditLog
		pcfg.Sinks = append(pcfg.Sinks, audit.Sink{Log: auditLog})
		hcfg.Journal = auditLog
	}

	if cfg.History.DSN != "" {
		store, err := history.Open(ctx, cfg.History.DSN)
		if err != nil {
			return fmt.Errorf("failed to open order history: %w", err)
		}
		defer store.Close()
		pcfg.Sinks = append(pcfg.Sinks, store)
	}

	if cfg.Archive.Bucket != "" {
		store, err := archive.New(ctx, cfg.Archive.Region, cfg.Archive.Bucket, cfg.Archive.Prefix)
		if err != nil {
			return fmt.Errorf("failed to open job archive: %w", err)
		}
		pcfg.Sinks = append(pcfg.Sinks, store)
	}

	if dispatcher := alert.NewDispatcher(cfg.Alerts); dispatcher != nil {
		defer dispatcher.Wait()
		pcfg.Alerts = dispatcher
	}

	if cfg.HealthPort != 0 {
		hs := health.New(health.Config{Port: cfg.HealthPort})
		go func() {
			if err := hs.Serve(); err != nil {
				fmt.Fprintf(os.Stderr, "health: %v\n", err)
			}
		}()
		defer hs.GracefulStop()
		pcfg.Status = hs
		fmt.Fprintf(os.Stderr, "gRPC health listening on :%d\n", cfg.HealthPort)
	}

	p := poller.New(client, q, pcfg)

	path := config.ResolvePath(configPath)
	reloader, err := config.NewReloader(path, func(c *config.Config) {
		allow, err := allowlistFrom(c.Mail)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: hot-reload failed: %v\n", err)
			return
		}
		p.Reconfigure(sourcesFrom(c), allow)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
	} else {
		go func() { _ = reloader.Run(ctx) }()
	}

	srv := cloudprnt.NewServer(q, hcfg)
	fmt.Fprintf(os.Stderr, "orderprint listening on %s, checking %d sources every %s\n",
		srv.Addr(), len(cfg.Sources), cfg.PollInterval)
	if cfg.TestRoute {
		fmt.Fprintln(os.Stderr, "Test route: GET /createjob")
	}
	if reloader != nil {
		fmt.Fprintf(os.Stderr, "Config: %s (hot-reload enabled)\n", path)
	}

	err = runUntilDrained(ctx, stop, p.Run, srv.Start)
	fmt.Fprintln(os.Stderr, "\nShutting down orderprint...")
	return err
}

// runUntilDrained runs the poll loop next to serve. When serve returns the
// loop is cancelled and waited for, so deferred closes of the journal and
// sinks never race an in-flight check.
func runUntilDrained(ctx context.Context, cancel context.CancelFunc, loop, serve func(context.Context) error) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop(ctx)
	}()
	err := serve(ctx)
	cancel()
	<-done
	return err
}
