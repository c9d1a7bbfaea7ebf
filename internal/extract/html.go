package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ppiankov/orderprint/internal/textnorm"
)

// parseHTML loads markup into a goquery document. The HTML5 parser accepts
// any input, so an error only means the reader failed.
func parseHTML(markup string) (*goquery.Document, bool) {
	if strings.TrimSpace(markup) == "" {
		return nil, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, false
	}
	return doc, true
}

// cellText is the whitespace-collapsed text of a selection.
func cellText(s *goquery.Selection) string {
	return textnorm.Collapse(s.Text())
}

// blockElements end a line when rendering markup as plain text.
var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "br": true,
	"div": true, "footer": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "ol": true, "p": true, "section": true, "table": true,
	"td": true, "th": true, "tr": true, "ul": true,
}

// htmlText renders markup as newline-separated text, one block per line.
// Script and style contents are dropped.
func htmlText(markup string) string {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" || n.Data == "head" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteByte('\n')
		}
	}
	walk(root)
	return textnorm.Whitespace(b.String())
}

// textNodes returns every non-empty text node of the document in order,
// whitespace-collapsed.
func textNodes(doc *goquery.Document) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := textnorm.Collapse(n.Data); t != "" {
				out = append(out, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return out
}
