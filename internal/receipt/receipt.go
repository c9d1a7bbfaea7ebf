// Package receipt renders orders into StarPRNT command streams for 58mm
// Star thermal printers.
package receipt

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/ppiankov/orderprint/internal/order"
)

// MediaType is the CloudPRNT media type of a rendered job.
const MediaType = "application/vnd.star.starprnt"

// DefaultColumns is the line width of the 58mm device profile.
const DefaultColumns = 32

// Line indents.
const (
	HeaderIndent   = " "
	ModifierIndent = "    "
)

// StarPRNT commands.
var (
	cmdReset        = []byte{0x1B, 0x40}
	cmdBoldOn       = []byte{0x1B, 0x45, 0x01}
	cmdBoldOff      = []byte{0x1B, 0x45, 0x00}
	cmdUnderlineOn  = []byte{0x1B, 0x2D, 0x01}
	cmdUnderlineOff = []byte{0x1B, 0x2D, 0x00}
	cmdFeed3        = []byte{0x1B, 0x64, 0x03}
	cmdCut          = []byte{0x1D, 0x56, 0x00}
)

var (
	asciiReplacer = strings.NewReplacer(
		"\u00a0", " ",
		"’", "'", "‘", "'",
		"“", `"`, "”", `"`,
		"–", "-", "—", "-",
		"×", "x",
	)
	nonPrintable = regexp.MustCompile(`[^\x20-\x7E]`)
	spaceRun     = regexp.MustCompile(`\s+`)
)

// Sanitize maps text to the printable ASCII range the printer's code page
// can show. Typographic quotes, dashes and × become their ASCII look-alikes;
// anything else outside 0x20-0x7E is dropped.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = asciiReplacer.Replace(s)
	s = nonPrintable.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Cut sanitizes text and hard-cuts it so indent plus text fits in columns.
// The result is never longer than columns unless indent itself is.
func Cut(text, indent string, columns int) string {
	t := Sanitize(text)
	usable := columns - len(indent)
	if usable < 0 {
		usable = 0
	}
	if len(t) > usable {
		t = t[:usable]
	}
	return indent + t
}

// Renderer builds receipts for one device profile.
type Renderer struct {
	Columns int
}

// New returns a renderer for the given line width; zero or negative
// selects DefaultColumns.
func New(columns int) *Renderer {
	if columns <= 0 {
		columns = DefaultColumns
	}
	return &Renderer{Columns: columns}
}

// Render renders with the default device profile.
func Render(o order.Order) []byte {
	return New(DefaultColumns).Render(o)
}

// Render turns an order into a StarPRNT job. Header lines are bold, item
// labels bold and underlined, modifiers plain with a deeper indent. It
// never fails: an all-default order still produces a valid job.
func (r *Renderer) Render(o order.Order) []byte {
	var b bytes.Buffer
	b.Write(cmdReset)

	header := func(text string) {
		b.Write(cmdBoldOn)
		r.line(&b, text, HeaderIndent)
		b.Write(cmdBoldOff)
	}

	header(o.Customer)
	header(o.Type)
	if o.Phone != "" {
		header(o.Phone)
	}
	header("Total Items: " + o.TotalItems)
	if o.Note != "" {
		header("NOTE: " + o.Note)
	}
	if o.Estimate != "" {
		header(o.Estimate)
	}

	for _, it := range o.Items {
		b.WriteByte('\n')
		b.Write(cmdBoldOn)
		b.Write(cmdUnderlineOn)
		r.line(&b, it.Label, HeaderIndent)
		b.Write(cmdUnderlineOff)
		b.Write(cmdBoldOff)
		for _, m := range it.Modifiers {
			r.line(&b, m, ModifierIndent)
		}
	}

	b.WriteByte('\n')
	b.Write(cmdFeed3)
	b.Write(cmdCut)
	return b.Bytes()
}

func (r *Renderer) line(b *bytes.Buffer, text, indent string) {
	columns := r.Columns
	if columns <= 0 {
		columns = DefaultColumns
	}
	b.WriteString(Cut(text, indent, columns))
	b.WriteByte('\n')
}
