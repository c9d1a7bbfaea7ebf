package alert

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Dispatcher fans out alert events to matching webhook configurations.
type Dispatcher struct {
	configs []AlertConfig
	log     io.Writer
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []AlertConfig) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs, log: os.Stderr}
}

// SetLog redirects delivery failures, which are otherwise written to stderr.
func (d *Dispatcher) SetLog(w io.Writer) {
	if d != nil && w != nil {
		d.log = w
	}
}

// Dispatch sends the event to all webhooks whose Events list names its
// type. Deliveries run in goroutines and do not block the caller.
// A nil Dispatcher drops the event.
func (d *Dispatcher) Dispatch(event AlertEvent) {
	if d == nil {
		return
	}
	for _, cfg := range d.configs {
		if !matches(cfg.Events, event) {
			continue
		}
		d.wg.Add(1)
		go func(cfg AlertConfig) {
			defer d.wg.Done()
			if err := Send(cfg, event); err != nil {
				fmt.Fprintf(d.log, "alert: %s to %s: %v\n", event.Type, cfg.URL, err)
			}
		}(cfg)
	}
}

// Wait blocks until every dispatched delivery has finished.
func (d *Dispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}

func matches(events []string, event AlertEvent) bool {
	for _, e := range events {
		if e == event.Type || e == "*" {
			return true
		}
	}
	return false
}
