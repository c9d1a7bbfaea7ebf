package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/orderprint/internal/order"
	"github.com/ppiankov/orderprint/internal/textnorm"
)

var (
	prefixedItem = regexp.MustCompile(`^(\d+)x\s+(.+)$`)
	customerLine = regexp.MustCompile(`(?i)^Customer:\s*(.+)$`)
)

// SquareLines reads the older Square text layout where every item line
// starts with its quantity ("2x Chocolate Donut") and modifiers start
// with "+".
type SquareLines struct{}

// Name implements Extractor.
func (SquareLines) Name() string { return "square-lines" }

// Extract implements Extractor.
func (SquareLines) Extract(d Document) order.Order {
	o := order.Default(order.SquarePickup)
	lines := textnorm.Lines(d.PlainText())
	if len(lines) == 0 {
		return o
	}

	var mods [][]string
	for _, l := range lines {
		lower := strings.ToLower(l)
		switch {
		case strings.Contains(lower, "delivery"):
			o.Type = order.SquareDelivery
		case strings.Contains(lower, "pickup") && o.Type != order.SquareDelivery:
			o.Type = order.SquarePickup
		}
		if m := customerLine.FindStringSubmatch(l); m != nil && o.Customer == order.UnknownCustomer {
			o.Customer = strings.TrimSpace(m[1])
			continue
		}
		if m := phonePattern.FindString(l); m != "" {
			o.Phone = m
		}
		if m := prefixedItem.FindStringSubmatch(l); m != nil {
			qty, _ := strconv.Atoi(m[1])
			o.Items = append(o.Items, order.NewLineItem(qty, strings.TrimSpace(m[2])))
			mods = append(mods, nil)
			continue
		}
		if strings.HasPrefix(l, "+") && len(o.Items) > 0 {
			if mod := CleanModifier(l); mod != "" {
				last := len(o.Items) - 1
				mods[last] = append(mods[last], mod)
			}
		}
	}

	for i := range o.Items {
		o.Items[i].Modifiers = order.CollapseModifiers(mods[i])
	}
	o.TotalItems = strconv.Itoa(len(o.Items))
	return o
}
