// Package order defines the canonical order record produced by the
// extractors and consumed by the receipt renderer.
package order

import (
	"strconv"
	"time"
)

// UnknownCustomer is the customer value when no name could be resolved.
const UnknownCustomer = "UNKNOWN"

// Order types. The set is closed: extractors only ever emit these labels.
const (
	GrubHubPickup   = "GrubHub Pickup"
	GrubHubDelivery = "GrubHub Delivery"
	SquarePickup    = "Square Pickup"
	SquareDelivery  = "Square Delivery"
)

// Order is one parsed order notification. Fields are display strings;
// they are sanitized only when rendered.
type Order struct {
	Customer   string     `json:"customer"`
	Type       string     `json:"order_type"`
	Phone      string     `json:"phone,omitempty"`
	TotalItems string     `json:"total_items"`
	Estimate   string     `json:"estimate,omitempty"`
	Note       string     `json:"note,omitempty"`
	Items      []LineItem `json:"items"`
}

// LineItem is a product line. Label already carries the quantity,
// e.g. "2x Glazed Donut".
type LineItem struct {
	Label     string   `json:"label"`
	Modifiers []string `json:"modifiers,omitempty"`
}

// Default returns an order with every field at its documented default.
func Default(orderType string) Order {
	return Order{
		Customer:   UnknownCustomer,
		Type:       orderType,
		TotalItems: "0",
		Items:      []LineItem{},
	}
}

// NewLineItem builds an item labelled "<qty>x <name>".
func NewLineItem(qty int, name string) LineItem {
	return LineItem{Label: strconv.Itoa(qty) + "x " + name}
}

// Degraded reports whether the order was only partially understood.
// Degraded orders are still printed.
func (o Order) Degraded() bool {
	return o.Customer == UnknownCustomer || o.Customer == "" || len(o.Items) == 0
}

// Resolved counts the fields that differ from their defaults. Used to rank
// extraction results that produced no items.
func (o Order) Resolved() int {
	n := 0
	if o.Customer != "" && o.Customer != UnknownCustomer {
		n++
	}
	if o.Phone != "" {
		n++
	}
	if o.TotalItems != "" && o.TotalItems != "0" {
		n++
	}
	if o.Estimate != "" {
		n++
	}
	if o.Note != "" {
		n++
	}
	return n + len(o.Items)
}

// CollapseModifiers merges duplicate modifiers into a single "<n>x <mod>"
// entry, keeping the order of first appearance. Single occurrences stay bare.
func CollapseModifiers(mods []string) []string {
	if len(mods) == 0 {
		return nil
	}
	counts := make(map[string]int, len(mods))
	var firsts []string
	for _, m := range mods {
		if counts[m] == 0 {
			firsts = append(firsts, m)
		}
		counts[m]++
	}
	out := make([]string, 0, len(firsts))
	for _, m := range firsts {
		if n := counts[m]; n > 1 {
			out = append(out, strconv.Itoa(n)+"x "+m)
		} else {
			out = append(out, m)
		}
	}
	return out
}

// Printed is a rendered order that was handed to the print queue.
type Printed struct {
	Token     string    `json:"token"`
	Source    string    `json:"source"`
	MessageID string    `json:"message_id"`
	Extractor string    `json:"extractor"`
	Order     Order     `json:"order"`
	Data      []byte    `json:"-"`
	QueuedAt  time.Time `json:"queued_at"`
}
