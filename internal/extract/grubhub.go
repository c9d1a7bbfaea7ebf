package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/orderprint/internal/order"
	"github.com/ppiankov/orderprint/internal/textnorm"
)

const (
	labelDeliver = "Deliver to:"
	labelPickup  = "Pickup by:"
)

var (
	itemCount = regexp.MustCompile(`(?i)\b(\d+)\s*items?\b`)
	digits    = regexp.MustCompile(`^\d+$`)
)

// GrubHub reads the semi-structured HTML of GrubHub order mails.
type GrubHub struct{}

// Name implements Extractor.
func (GrubHub) Name() string { return "grubhub-markup" }

// Extract implements Extractor.
func (GrubHub) Extract(d Document) order.Order {
	o := order.Default(order.GrubHubPickup)
	doc, ok := parseHTML(d.HTML)
	if !ok {
		return o
	}

	meta := doc.Find(`[data-section="grubhub-order-data"]`)

	o.Phone = cellText(meta.Find(`[data-field="phone"]`))
	if o.Phone == "" {
		o.Phone = cellText(doc.Find(`a[href^="tel:"]`).First())
	}

	service := strings.ToLower(cellText(meta.Find(`[data-field="service-type"]`)))
	switch {
	case strings.Contains(service, "delivery"):
		o.Type = order.GrubHubDelivery
	case strings.Contains(service, "pickup"):
		o.Type = order.GrubHubPickup
	case doc.Find(`div:contains("` + labelDeliver + `")`).Length() > 0:
		o.Type = order.GrubHubDelivery
	default:
		o.Type = order.GrubHubPickup
	}

	if label := labelDiv(doc, labelDeliver); label.Length() > 0 {
		o.Customer = nameAfter(label)
	} else if label := labelDiv(doc, labelPickup); label.Length() > 0 {
		o.Customer = nameAfter(label)
	}

	o.TotalItems = grubHubItemCount(doc)
	o.Items = grubHubItems(doc)
	return o
}

// labelDiv finds the first div whose entire text is the label.
func labelDiv(doc *goquery.Document, label string) *goquery.Selection {
	return doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return cellText(s) == label
	}).First()
}

func nameAfter(label *goquery.Selection) string {
	if name := cellText(label.NextFiltered("div")); name != "" {
		return name
	}
	return order.UnknownCustomer
}

// grubHubItemCount returns the first "<n> item(s)" found in text order.
// Counts split across inline elements are caught by the paragraph pass.
func grubHubItemCount(doc *goquery.Document) string {
	for _, t := range textNodes(doc) {
		if m := itemCount.FindStringSubmatch(t); m != nil {
			return m[1]
		}
	}
	count := "0"
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if m := itemCount.FindStringSubmatch(cellText(p)); m != nil {
			count = m[1]
			return false
		}
		return true
	})
	return count
}

// grubHubItems reads "<qty> | x | <name>" rows. Modifiers live in list
// elements of the row that follows the item row.
func grubHubItems(doc *goquery.Document) []order.LineItem {
	items := []order.LineItem{}
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() < 3 {
			return
		}
		qty := cellText(cells.Eq(0))
		sep := cellText(cells.Eq(1))
		name := cellText(cells.Eq(2))
		if !digits.MatchString(qty) || !strings.EqualFold(sep, "x") || name == "" {
			return
		}

		var mods []string
		tr.NextFiltered("tr").Find("li").Each(func(_ int, li *goquery.Selection) {
			if m := stripBullets(cellText(li)); m != "" {
				mods = append(mods, m)
			}
		})

		items = append(items, order.LineItem{
			Label:     qty + "x " + name,
			Modifiers: order.CollapseModifiers(mods),
		})
	})
	return items
}

var (
	deliverLine = regexp.MustCompile(`(?i)Deliver to:\s*(.+)`)
	pickupLine  = regexp.MustCompile(`(?i)Pickup by:\s*(.+)`)
	totalLine   = regexp.MustCompile(`(?i)Total items:\s*(\d+)`)
	qtyXLine    = regexp.MustCompile(`(?i)^(\d+)\s*x\s*(.+)$`)
)

// GrubHubText reads GrubHub mails whose markup was flattened to text
// (forwarded or plain-text copies). Labels and values share a line.
type GrubHubText struct{}

// Name implements Extractor.
func (GrubHubText) Name() string { return "grubhub-text" }

// Extract implements Extractor.
func (GrubHubText) Extract(d Document) order.Order {
	o := order.Default(order.GrubHubPickup)
	body := d.PlainText()
	if body == "" {
		return o
	}

	if m := deliverLine.FindStringSubmatch(body); m != nil && strings.TrimSpace(m[1]) != "" {
		o.Customer = strings.TrimSpace(m[1])
		o.Type = order.GrubHubDelivery
	} else if m := pickupLine.FindStringSubmatch(body); m != nil && strings.TrimSpace(m[1]) != "" {
		o.Customer = strings.TrimSpace(m[1])
	}

	if m := totalLine.FindStringSubmatch(body); m != nil {
		o.TotalItems = m[1]
	} else if m := itemCount.FindStringSubmatch(body); m != nil {
		o.TotalItems = m[1]
	}

	if m := phonePattern.FindString(body); m != "" {
		o.Phone = m
	}

	var current *order.LineItem
	var mods []string
	flush := func() {
		if current != nil {
			current.Modifiers = order.CollapseModifiers(mods)
			o.Items = append(o.Items, *current)
		}
		current, mods = nil, nil
	}
	for _, line := range textnorm.Lines(body) {
		if m := qtyXLine.FindStringSubmatch(line); m != nil {
			flush()
			current = &order.LineItem{Label: m[1] + "x " + strings.TrimSpace(m[2])}
			continue
		}
		if current != nil && strings.Contains(line, "▪") {
			if _, after, ok := strings.Cut(line, "▪"); ok {
				if mod := stripBullets(strings.TrimSpace(after)); mod != "" {
					mods = append(mods, mod)
				}
			}
		}
	}
	flush()
	return o
}
