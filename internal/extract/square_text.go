package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/orderprint/internal/order"
	"github.com/ppiankov/orderprint/internal/textnorm"
)

// lookahead is how many lines after a candidate item name may hold its price.
const lookahead = 3

var (
	moneyToken = regexp.MustCompile(`[-−]?\$\s?\d[\d,]*(?:\.\d{2})?`)
	moneyLine  = regexp.MustCompile(`^[-−(]*\$\s?\d[\d,]*(?:\.\d{2})?\)?$`)
	numeric    = regexp.MustCompile(`^[\d\s.,#:/-]+$`)
	noise      = regexp.MustCompile(`(?i)\b(?:sub)?total\b|\bsavings\b|\bdiscount\b|\border\s*#|\border number\b|\breceipt\b|\btax(?:es)?\b|\btip\b|\bfees?\b|\bpayment\b|\bvisa\b|\bmastercard\b|\bamex\b|\bdiscover\b|\brefund\b|\brewards?\b|\bunsubscribe\b|\bprivacy\b|https?://|@`)
	stopPhrase = regexp.MustCompile(`(?i)\b(?:sub)?total\b|\bsavings\b`)
	navLabel   = regexp.MustCompile(`(?i)^(?:view|manage|track|unsubscribe|privacy)\b|https?://|^\[.*\]$|^<.*>$`)
)

// SquareText reads Square receipts from plain text alone. The layout has no
// item markers: a line is an item when a price follows it within a few
// lines.
type SquareText struct{}

// Name implements Extractor.
func (SquareText) Name() string { return "square-text" }

// Extract implements Extractor.
func (SquareText) Extract(d Document) order.Order {
	o := order.Default(order.SquarePickup)
	lines := textnorm.Lines(d.PlainText())
	if len(lines) == 0 {
		return o
	}

	reserved := make(map[int]bool)

	pickup, delivery := -1, -1
	for i, l := range lines {
		switch {
		case strings.EqualFold(l, "Estimated Pickup Time"):
			pickup = i
		case strings.EqualFold(l, "Estimated Delivery Time"):
			delivery = i
		}
	}
	eta := pickup
	if delivery >= 0 {
		eta = delivery
		o.Type = order.SquareDelivery
	}
	if eta >= 0 {
		reserved[eta] = true
		if eta+1 < len(lines) {
			o.Estimate = lines[eta+1]
			reserved[eta+1] = true
		}
	}

	for i, l := range lines {
		if !strings.EqualFold(l, "Notes") {
			continue
		}
		reserved[i] = true
		if i+1 < len(lines) && !navLabel.MatchString(lines[i+1]) {
			o.Note = lines[i+1]
			reserved[i+1] = true
		}
		break
	}

	phoneAt := -1
	for i, l := range lines {
		if m := phonePattern.FindString(l); m != "" {
			o.Phone = m
			phoneAt = i
		}
	}
	if phoneAt >= 0 {
		reserved[phoneAt] = true
		for j := phoneAt - 1; j >= 0 && j >= phoneAt-3; j-- {
			l := lines[j]
			if phonePattern.MatchString(l) || noise.MatchString(l) || moneyToken.MatchString(l) || reserved[j] {
				continue
			}
			o.Customer = l
			reserved[j] = true
			break
		}
	}

	o.Items = squareTextItems(lines, reserved)
	o.TotalItems = strconv.Itoa(len(o.Items))
	return o
}

func isItemCandidate(l string) bool {
	return !moneyLine.MatchString(l) &&
		!hasBullet(l) &&
		!noise.MatchString(l) &&
		len(l) > 2 &&
		!numeric.MatchString(l) &&
		!phonePattern.MatchString(l) &&
		!strings.HasSuffix(l, ":")
}

// priceAfter returns the index of the first line within the lookahead window
// that carries a money token, or -1. Bullet lines are modifiers of the
// candidate even when they carry a price, so they neither match nor use up
// the window. A stop phrase closes the window.
func priceAfter(lines []string, i int) int {
	seen := 0
	for j := i + 1; j < len(lines) && seen < lookahead; j++ {
		if hasBullet(lines[j]) {
			continue
		}
		seen++
		if stopPhrase.MatchString(lines[j]) {
			return -1
		}
		if moneyToken.MatchString(lines[j]) {
			return j
		}
	}
	return -1
}

func squareTextItems(lines []string, reserved map[int]bool) []order.LineItem {
	items := []order.LineItem{}
	var mods [][]string

	addMod := func(l string) {
		if mod := CleanModifier(l); mod != "" {
			last := len(items) - 1
			mods[last] = append(mods[last], mod)
		}
	}

	for i := 0; i < len(lines); i++ {
		l := lines[i]
		if len(items) > 0 && stopPhrase.MatchString(l) {
			break
		}
		if len(items) > 0 && hasBullet(l) {
			addMod(l)
			continue
		}
		if reserved[i] || !isItemCandidate(l) {
			continue
		}
		p := priceAfter(lines, i)
		if p < 0 {
			continue
		}
		qty, name := SplitQuantity(l)
		items = append(items, order.NewLineItem(qty, name))
		mods = append(mods, nil)
		for j := i + 1; j < p; j++ {
			if hasBullet(lines[j]) {
				addMod(lines[j])
			}
		}
		i = p
	}

	for i := range items {
		items[i].Modifiers = order.CollapseModifiers(mods[i])
	}
	return items
}
