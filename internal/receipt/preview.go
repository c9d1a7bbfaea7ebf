package receipt

import (
	"bytes"
	"fmt"
	"strings"
)

var commandNames = []struct {
	seq  []byte
	name string
}{
	{cmdReset, "[RESET]"},
	{cmdBoldOn, "[BOLD ON]"},
	{cmdBoldOff, "[BOLD OFF]"},
	{cmdUnderlineOn, "[UNDERLINE ON]"},
	{cmdUnderlineOff, "[UNDERLINE OFF]"},
	{cmdFeed3, "[FEED 3]"},
	{cmdCut, "[CUT]"},
}

// Preview decodes a job into readable text with commands shown in
// brackets. Unknown non-printable bytes are shown as hex.
func Preview(job []byte) string {
	var b strings.Builder
next:
	for i := 0; i < len(job); {
		for _, c := range commandNames {
			if bytes.HasPrefix(job[i:], c.seq) {
				b.WriteString(c.name)
				i += len(c.seq)
				continue next
			}
		}
		switch ch := job[i]; {
		case ch == '\n':
			b.WriteByte('\n')
		case ch >= 0x20 && ch <= 0x7E:
			b.WriteByte(ch)
		default:
			fmt.Fprintf(&b, "[0x%02X]", ch)
		}
		i++
	}
	return b.String()
}
