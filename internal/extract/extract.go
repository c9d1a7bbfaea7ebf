// Package extract turns order notification bodies into order.Order records.
// Each source format is served by a ranked chain of independent strategies;
// the first strategy that finds items wins.
package extract

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/orderprint/internal/order"
)

// Source format labels. A message's format is declared by configuration
// (the mailbox label it arrived under), never sniffed from content.
const (
	FormatGrubHub = "grubhub"
	FormatSquare  = "square"
)

// ErrUnknownFormat is returned when no extractor is registered for a format.
var ErrUnknownFormat = errors.New("unknown source format")

// Document holds the renditions of a message body. Either may be empty.
type Document struct {
	HTML string
	Text string
}

// PlainText returns Text, or a line-oriented rendering of HTML when the
// message carried no plain-text part.
func (d Document) PlainText() string {
	if strings.TrimSpace(d.Text) != "" {
		return d.Text
	}
	if d.HTML == "" {
		return ""
	}
	return htmlText(d.HTML)
}

// Extractor parses a document into an order. Implementations never fail:
// anything they cannot find is left at its default.
type Extractor interface {
	Name() string
	Extract(doc Document) order.Order
}

// Chain tries strategies in rank order and returns the first result with
// at least one item. When none finds items, the result with the most
// resolved fields wins, ties going to the higher rank.
type Chain struct {
	name       string
	fallback   string
	strategies []Extractor
}

// NewChain builds a chain. fallbackType is the order type reported when the
// chain has no strategies at all.
func NewChain(name, fallbackType string, strategies ...Extractor) *Chain {
	return &Chain{name: name, fallback: fallbackType, strategies: strategies}
}

// Name returns the chain name.
func (c *Chain) Name() string { return c.name }

// Extract implements Extractor.
func (c *Chain) Extract(doc Document) order.Order {
	o, _ := c.ExtractNamed(doc)
	return o
}

// ExtractNamed returns the order and the name of the strategy that produced it.
func (c *Chain) ExtractNamed(doc Document) (order.Order, string) {
	var (
		best      order.Order
		bestName  string
		bestScore = -1
	)
	for _, s := range c.strategies {
		o := s.Extract(doc)
		if len(o.Items) > 0 {
			return o, s.Name()
		}
		if score := o.Resolved(); score > bestScore {
			best, bestName, bestScore = o, s.Name(), score
		}
	}
	if bestScore < 0 {
		return order.Default(c.fallback), ""
	}
	return best, bestName
}

// Registry maps source formats to extractors.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// DefaultRegistry returns the built-in chains for every supported format.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(FormatGrubHub, NewChain(FormatGrubHub, order.GrubHubPickup,
		GrubHub{},
		GrubHubText{},
	))
	r.Register(FormatSquare, NewChain(FormatSquare, order.SquarePickup,
		SquareMarkup{},
		SquareText{},
		SquareLines{},
	))
	return r
}

// Register binds an extractor to a format, replacing any previous binding.
func (r *Registry) Register(format string, e Extractor) {
	r.extractors[strings.ToLower(format)] = e
}

// Get returns the extractor for a format.
func (r *Registry) Get(format string) (Extractor, error) {
	e, ok := r.extractors[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return e, nil
}

// Has reports whether a format is registered.
func (r *Registry) Has(format string) bool {
	_, ok := r.extractors[strings.ToLower(format)]
	return ok
}

// Formats returns the registered formats, sorted.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.extractors))
	for f := range r.extractors {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Extract parses doc with the extractor for format. The returned name is
// the strategy that matched.
func (r *Registry) Extract(format string, doc Document) (order.Order, string, error) {
	e, err := r.Get(format)
	if err != nil {
		return order.Order{}, "", err
	}
	if named, ok := e.(interface {
		ExtractNamed(Document) (order.Order, string)
	}); ok {
		o, name := named.ExtractNamed(doc)
		return o, name, nil
	}
	return e.Extract(doc), e.Name(), nil
}
