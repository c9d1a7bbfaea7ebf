package receipt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jaswdr/faker"

	"github.com/ppiankov/orderprint/internal/order"
)

func join(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func TestRenderExactBytes(t *testing.T) {
	o := order.Order{
		Customer:   "Jane Doe",
		Type:       order.SquarePickup,
		TotalItems: "1",
		Items: []order.LineItem{
			{Label: "1x Dozen Box", Modifiers: []string{"Extra Glaze"}},
		},
	}

	want := join(
		cmdReset,
		cmdBoldOn, []byte(" Jane Doe\n"), cmdBoldOff,
		cmdBoldOn, []byte(" Square Pickup\n"), cmdBoldOff,
		cmdBoldOn, []byte(" Total Items: 1\n"), cmdBoldOff,
		[]byte("\n"),
		cmdBoldOn, cmdUnderlineOn, []byte(" 1x Dozen Box\n"), cmdUnderlineOff, cmdBoldOff,
		[]byte("    Extra Glaze\n"),
		[]byte("\n"), cmdFeed3, cmdCut,
	)

	got := Render(o)
	if !bytes.Equal(got, want) {
		t.Errorf("Render mismatch\ngot:  %q\nwant: %q", Preview(got), Preview(want))
	}
}

func TestRenderOptionalHeaderOrder(t *testing.T) {
	o := order.Order{
		Customer:   "Jane",
		Type:       order.GrubHubDelivery,
		Phone:      "(555) 123-4567",
		TotalItems: "4",
		Note:       "Ring bell",
		Estimate:   "5:00 PM",
	}

	want := join(
		cmdReset,
		cmdBoldOn, []byte(" Jane\n"), cmdBoldOff,
		cmdBoldOn, []byte(" GrubHub Delivery\n"), cmdBoldOff,
		cmdBoldOn, []byte(" (555) 123-4567\n"), cmdBoldOff,
		cmdBoldOn, []byte(" Total Items: 4\n"), cmdBoldOff,
		cmdBoldOn, []byte(" NOTE: Ring bell\n"), cmdBoldOff,
		cmdBoldOn, []byte(" 5:00 PM\n"), cmdBoldOff,
		[]byte("\n"), cmdFeed3, cmdCut,
	)

	if got := Render(o); !bytes.Equal(got, want) {
		t.Errorf("Render mismatch\ngot:  %q\nwant: %q", Preview(got), Preview(want))
	}
}

func TestRenderDefaultOrder(t *testing.T) {
	got := Render(order.Default(order.SquarePickup))
	if len(got) == 0 {
		t.Fatal("empty job")
	}
	if !bytes.HasPrefix(got, cmdReset) {
		t.Error("job must start with reset")
	}
	if !bytes.HasSuffix(got, join([]byte("\n"), cmdFeed3, cmdCut)) {
		t.Error("job must end with feed and cut")
	}
	if !bytes.Contains(got, []byte(" UNKNOWN\n")) {
		t.Errorf("missing customer line: %q", Preview(got))
	}
}

func TestRenderZeroValueOrder(t *testing.T) {
	got := Render(order.Order{})
	if !bytes.HasPrefix(got, cmdReset) || !bytes.HasSuffix(got, cmdCut) {
		t.Errorf("job = %q", Preview(got))
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	o := order.Order{Customer: "A", Type: order.SquarePickup, TotalItems: "1",
		Items: []order.LineItem{{Label: "1x B", Modifiers: []string{"C"}}}}
	if !bytes.Equal(Render(o), Render(o)) {
		t.Error("Render is not deterministic")
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Jane’s “Special”", `Jane's "Special"`},
		{"Glaze – Extra — Large", "Glaze - Extra - Large"},
		{"Box × 2", "Box x 2"},
		{"Crème brûlée", "Crme brle"},
		{"a  b", "a b"},
		{"  spaced   out  ", "spaced out"},
		{"bell\x07", "bell"},
		{"🍩 Donut", "Donut"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCut(t *testing.T) {
	got := Cut("Dozen Donut Holes with Extra Chocolate Glaze", " ", 32)
	if got != " Dozen Donut Holes with Extra Ch" {
		t.Errorf("Cut = %q", got)
	}
	if len(got) != 32 {
		t.Errorf("len = %d", len(got))
	}
	if got := Cut("short", "    ", 32); got != "    short" {
		t.Errorf("Cut = %q", got)
	}
}

func TestCutNeverExceedsColumns(t *testing.T) {
	fake := faker.New()
	indents := []string{"", " ", "    ", strings.Repeat(" ", 31)}
	for i := 0; i < 200; i++ {
		text := fake.Lorem().Sentence(fake.IntBetween(1, 30)) + " “×—’ 🍩"
		for _, indent := range indents {
			got := Cut(text, indent, DefaultColumns)
			if len(got) > DefaultColumns {
				t.Fatalf("Cut(%q, %q) = %d bytes", text, indent, len(got))
			}
			if !strings.HasPrefix(got, indent) {
				t.Fatalf("Cut(%q, %q) lost its indent", text, indent)
			}
			for _, c := range []byte(got) {
				if c < 0x20 || c > 0x7E {
					t.Fatalf("Cut(%q) produced byte 0x%02X", text, c)
				}
			}
		}
	}
}

func TestRenderLinesFitColumns(t *testing.T) {
	o := order.Order{
		Customer:   strings.Repeat("N", 50),
		Type:       order.SquarePickup,
		TotalItems: "1",
		Items: []order.LineItem{{
			Label:     "1x " + strings.Repeat("I", 50),
			Modifiers: []string{strings.Repeat("M", 50)},
		}},
	}
	text := Preview(New(24).Render(o))
	for _, cmd := range commandNames {
		text = strings.ReplaceAll(text, cmd.name, "")
	}
	for _, l := range strings.Split(text, "\n") {
		if len(l) > 24 {
			t.Errorf("line %q exceeds 24 columns", l)
		}
	}
}

func TestNewDefaultsColumns(t *testing.T) {
	if New(0).Columns != DefaultColumns {
		t.Errorf("columns = %d", New(0).Columns)
	}
}

func TestPreview(t *testing.T) {
	got := Preview(join(cmdReset, cmdBoldOn, []byte("Hi\n"), cmdBoldOff, []byte{0x07}, cmdCut))
	want := "[RESET][BOLD ON]Hi\n[BOLD OFF][0x07][CUT]"
	if got != want {
		t.Errorf("Preview = %q, want %q", got, want)
	}
}
