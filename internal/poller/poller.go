// Package poller runs the mail-check cycle: it takes the next unread order
// mail, turns it into a print job and hands the job to the queue.
package poller

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ppiankov/orderprint/internal/alert"
	"github.com/ppiankov/orderprint/internal/audit"
	"github.com/ppiankov/orderprint/internal/extract"
	"github.com/ppiankov/orderprint/internal/mailbox"
	"github.com/ppiankov/orderprint/internal/order"
	"github.com/ppiankov/orderprint/internal/queue"
	"github.com/ppiankov/orderprint/internal/receipt"
	"github.com/ppiankov/orderprint/internal/textnorm"
)

// DefaultInterval is the time between mail checks.
const DefaultInterval = 5 * time.Second

// Source is one mail label and the extractor format its mails use.
type Source struct {
	Name   string
	Label  string
	Format string
}

// Sink receives every order after its job is queued. A failing sink is
// logged and never undoes the enqueue.
type Sink interface {
	Record(ctx context.Context, p order.Printed) error
}

// StatusReporter is told the outcome of every check.
type StatusReporter interface {
	ReportCheck(err error)
}

// Alerter receives check failures and degraded orders.
type Alerter interface {
	Dispatch(event alert.AlertEvent)
}

// Journal records skipped messages.
type Journal interface {
	Record(e audit.Entry) error
}

// Outcome says what one check did.
type Outcome string

const (
	OutcomeIdle    Outcome = "idle"
	OutcomeQueued  Outcome = "queued"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Result describes one check.
type Result struct {
	Outcome   Outcome
	Source    string
	MessageID string
	// Printed is set when a job was queued.
	Printed *order.Printed
	// Err is set for failed checks, and for queued checks whose message
	// could not be marked processed.
	Err error
}

// Config holds the poller's collaborators. Only Sources is required.
type Config struct {
	Sources   []Source
	Allowlist *mailbox.Allowlist
	Interval  time.Duration
	Columns   int
	Registry  *extract.Registry
	Sinks     []Sink
	Status    StatusReporter
	Alerts    Alerter
	Journal   Journal
	Log       io.Writer
}

// Poller checks the mailbox on an interval.
type Poller struct {
	client   mailbox.Client
	queue    *queue.Queue
	registry *extract.Registry
	renderer *receipt.Renderer
	cfg      Config

	mu      sync.RWMutex
	sources []Source
	allow   *mailbox.Allowlist
}

// New creates a poller that feeds q from client.
func New(client mailbox.Client, q *queue.Queue, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Registry == nil {
		cfg.Registry = extract.DefaultRegistry()
	}
	if cfg.Log == nil {
		cfg.Log = os.Stderr
	}
	return &Poller{
		client:   client,
		queue:    q,
		registry: cfg.Registry,
		renderer: receipt.New(cfg.Columns),
		cfg:      cfg,
		sources:  append([]Source(nil), cfg.Sources...),
		allow:    cfg.Allowlist,
	}
}

// Reconfigure replaces the source list and sender allowlist. The next
// check uses the new values.
func (p *Poller) Reconfigure(sources []Source, allow *mailbox.Allowlist) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources = append([]Source(nil), sources...)
	p.allow = allow
	fmt.Fprintf(p.cfg.Log, "poller: reconfigured with %d sources\n", len(sources))
}

// Sources returns the current source list in priority order.
func (p *Poller) Sources() []Source {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Source(nil), p.sources...)
}

// Run checks the mailbox every interval. Blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.CheckOnce(ctx)
		}
	}
}

// CheckOnce runs one cycle. Sources are tried in priority order and the
// first one with an unread message is processed; at most one message is
// handled per cycle.
func (p *Poller) CheckOnce(ctx context.Context) Result {
	p.mu.RLock()
	sources, allow := p.sources, p.allow
	p.mu.RUnlock()

	for _, src := range sources {
		ids, err := p.client.Unread(ctx, src.Label, 1)
		if err != nil {
			return p.fail(src, "", fmt.Errorf("list %s: %w", src.Label, err))
		}
		if len(ids) == 0 {
			continue
		}
		return p.process(ctx, src, ids[0], allow)
	}
	p.report(nil)
	return Result{Outcome: OutcomeIdle}
}

func (p *Poller) process(ctx context.Context, src Source, id string, allow *mailbox.Allowlist) Result {
	fmt.Fprintf(p.cfg.Log, "poller: mail found: %s %s\n", src.Name, id)

	msg, err := p.client.Fetch(ctx, id)
	if err != nil {
		return p.fail(src, id, fmt.Errorf("fetch %s: %w", id, err))
	}

	if sender := msg.Sender(); !allow.IsAllowed(sender) {
		return p.skip(ctx, src, id, sender)
	}

	o, extractor, err := p.registry.Extract(src.Format, Document(msg))
	if err != nil {
		return p.fail(src, id, err)
	}

	data := p.renderer.Render(o)
	token, err := p.queue.Enqueue(data)
	if err != nil {
		return p.fail(src, id, fmt.Errorf("enqueue: %w", err))
	}
	printed := order.Printed{
		Token:     token,
		Source:    src.Name,
		MessageID: id,
		Extractor: extractor,
		Order:     o,
		Data:      data,
		QueuedAt:  time.Now().UTC(),
	}
	fmt.Fprintf(p.cfg.Log, "poller: queued %s for %q (%s via %s, %d bytes)\n",
		token, o.Customer, o.Type, extractor, len(data))

	for _, s := range p.cfg.Sinks {
		if err := s.Record(ctx, printed); err != nil {
			fmt.Fprintf(p.cfg.Log, "poller: sink: %v\n", err)
		}
	}

	if o.Degraded() {
		p.alert(alert.AlertEvent{
			Type:      alert.EventDegradedOrder,
			Source:    src.Name,
			MessageID: id,
			Token:     token,
			Customer:  o.Customer,
			OrderType: o.Type,
			Extractor: extractor,
			Reason:    degradedReason(o),
		})
	}

	res := Result{Outcome: OutcomeQueued, Source: src.Name, MessageID: id, Printed: &printed}
	if err := p.client.MarkProcessed(ctx, id); err != nil {
		res.Err = fmt.Errorf("mark %s processed: %w", id, err)
		fmt.Fprintf(p.cfg.Log, "poller: %s: %v\n", src.Name, res.Err)
		p.report(res.Err)
		return res
	}
	p.report(nil)
	return res
}

func (p *Poller) skip(ctx context.Context, src Source, id, sender string) Result {
	fmt.Fprintf(p.cfg.Log, "poller: %s: sender %q not allowed, skipping %s\n", src.Name, sender, id)
	if p.cfg.Journal != nil {
		err := p.cfg.Journal.Record(audit.Entry{
			Event:     audit.EventSkipped,
			Source:    src.Name,
			MessageID: id,
			Detail:    "sender not allowed: " + sender,
		})
		if err != nil {
			fmt.Fprintf(p.cfg.Log, "poller: audit: %v\n", err)
		}
	}
	if err := p.client.MarkProcessed(ctx, id); err != nil {
		return p.fail(src, id, fmt.Errorf("mark %s processed: %w", id, err))
	}
	p.report(nil)
	return Result{Outcome: OutcomeSkipped, Source: src.Name, MessageID: id}
}

func (p *Poller) fail(src Source, id string, err error) Result {
	fmt.Fprintf(p.cfg.Log, "poller: %s: %v\n", src.Name, err)
	p.report(err)
	p.alert(alert.AlertEvent{
		Type:      alert.EventCheckFailed,
		Source:    src.Name,
		MessageID: id,
		Reason:    err.Error(),
	})
	return Result{Outcome: OutcomeFailed, Source: src.Name, MessageID: id, Err: err}
}

func (p *Poller) report(err error) {
	if p.cfg.Status != nil {
		p.cfg.Status.ReportCheck(err)
	}
}

func (p *Poller) alert(event alert.AlertEvent) {
	if p.cfg.Alerts == nil {
		return
	}
	event.Timestamp = time.Now().UTC().Format(audit.TimestampFormat)
	p.cfg.Alerts.Dispatch(event)
}

func degradedReason(o order.Order) string {
	switch {
	case len(o.Items) == 0 && (o.Customer == order.UnknownCustomer || o.Customer == ""):
		return "no customer and no items found"
	case len(o.Items) == 0:
		return "no items found"
	default:
		return "no customer found"
	}
}

// Document builds the extractor input from a message: the HTML part with
// whitespace normalized, and the plain part with quoted-printable escapes
// decoded as well.
func Document(msg *mailbox.Message) extract.Document {
	if msg == nil {
		return extract.Document{}
	}
	html := mailbox.PartText(msg.Payload, "text/html")
	text := mailbox.PartText(msg.Payload, "text/plain")
	return extract.Document{
		HTML: textnorm.Whitespace(html),
		Text: textnorm.Whitespace(textnorm.DecodeQuotedPrintable(text)),
	}
}
