package extract

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/orderprint/internal/order"
)

// SquareMarkup reads the class-annotated HTML of Square receipts.
type SquareMarkup struct{}

// Name implements Extractor.
func (SquareMarkup) Name() string { return "square-markup" }

// Extract implements Extractor.
func (SquareMarkup) Extract(d Document) order.Order {
	o := order.Default(order.SquarePickup)
	doc, ok := parseHTML(d.HTML)
	if !ok {
		return o
	}

	// The last cell carrying a phone number is the customer's; the cell
	// before it holds the name.
	doc.Find("td").Each(func(_ int, td *goquery.Selection) {
		m := phonePattern.FindString(cellText(td))
		if m == "" {
			return
		}
		o.Phone = m
		o.Customer = order.UnknownCustomer
		if name := cellText(td.Prev()); name != "" {
			o.Customer = name
		}
	})

	o.Note = fulfillmentValue(doc, "Notes")

	if eta := fulfillmentRow(doc, "Estimated Delivery Time"); eta.Length() > 0 {
		o.Type = order.SquareDelivery
		o.Estimate = cellText(eta.Find("div.pickup-info.p").First())
	} else if eta := fulfillmentRow(doc, "Estimated Pickup Time"); eta.Length() > 0 {
		o.Estimate = cellText(eta.Find("div.pickup-info.p").First())
	}

	o.Items = squareMarkupItems(doc)
	o.TotalItems = strconv.Itoa(len(o.Items))
	return o
}

func fulfillmentRow(doc *goquery.Document, title string) *goquery.Selection {
	return doc.Find(`div.pickup-fulfillment-title.p:contains("` + title + `")`).First().Closest("tr")
}

func fulfillmentValue(doc *goquery.Document, title string) string {
	return cellText(fulfillmentRow(doc, title).Find("div.pickup-info.p").First())
}

// squareMarkupItems walks the payment table. Only tr.item-row starts an
// item; modifier rows attach to the most recent item.
func squareMarkupItems(doc *goquery.Document) []order.LineItem {
	items := []order.LineItem{}
	var mods [][]string

	rows := doc.Find("table.table-payment-info").First().Find("tr")
	rows.Each(func(_ int, tr *goquery.Selection) {
		if tr.HasClass("item-row") {
			name := cellText(tr.Find("h2.item-name").First())
			if name == "" {
				return
			}
			qty, name := SplitQuantity(name)
			items = append(items, order.NewLineItem(qty, name))
			mods = append(mods, nil)
			return
		}
		if len(items) == 0 || tr.Find("td.item-modifier-name").Length() == 0 {
			return
		}
		if mod := CleanModifier(tr.Find("div.p").First().Text()); mod != "" {
			last := len(items) - 1
			mods[last] = append(mods[last], mod)
		}
	})

	for i := range items {
		items[i].Modifiers = order.CollapseModifiers(mods[i])
	}
	return items
}
