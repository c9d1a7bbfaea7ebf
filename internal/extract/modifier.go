package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/orderprint/internal/textnorm"
)

// bulletGlyphs prefix modifier lines in both sources. U+FE0F is the emoji
// variation selector that trails "▪️".
const bulletGlyphs = "▪•◦·‣⁃➕+*\uFE0F"

var (
	// quantitySuffix matches a trailing multiplier: "×4", "Holes × 4", " x4",
	// or the mis-decoded forms "Ã\u0097 4" and "c\ 4" seen in some mail
	// clients. Latin x needs a space before it so "Mix 2" stays a name.
	quantitySuffix = regexp.MustCompile(`(?i)(?:×|Ã\x{0097}?|(?:^|\s)(?:x|c\\))\s*(\d+)\s*$`)
	priceParen     = regexp.MustCompile(`\(\s*\$[\d.,]+\s*\)`)
	controlChars   = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	phonePattern   = regexp.MustCompile(`\(\d{3}\)\s*\d{3}-\d{4}`)
)

// stripBullets removes leading bullet glyphs and spaces.
func stripBullets(s string) string {
	return strings.TrimLeft(s, bulletGlyphs+" \t\u00a0")
}

// hasBullet reports whether a line starts with a bullet or plus glyph.
func hasBullet(s string) bool {
	return s != "" && strings.ContainsRune(bulletGlyphs, []rune(s)[0])
}

// SplitQuantity extracts an embedded trailing multiplier from an item name.
// Names without one get quantity 1.
func SplitQuantity(name string) (int, string) {
	name = strings.TrimSpace(name)
	m := quantitySuffix.FindStringSubmatchIndex(name)
	if m == nil {
		return 1, name
	}
	qty, err := strconv.Atoi(name[m[2]:m[3]])
	rest := strings.TrimSpace(name[:m[0]])
	if err != nil || qty <= 0 || rest == "" {
		return 1, name
	}
	return qty, rest
}

// CleanModifier normalizes one modifier line: bullets and "($0.50)" prices
// are removed, a trailing "×2" becomes a "2x " prefix, control characters
// are dropped and whitespace collapsed.
func CleanModifier(raw string) string {
	s := stripBullets(strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", " ")))
	s = strings.TrimSpace(priceParen.ReplaceAllString(s, ""))

	qty := ""
	if m := quantitySuffix.FindStringSubmatchIndex(s); m != nil && strings.TrimSpace(s[:m[0]]) != "" {
		qty = s[m[2]:m[3]]
		s = s[:m[0]]
	}

	s = strings.ReplaceAll(s, "×", "x")
	s = controlChars.ReplaceAllString(s, "")
	s = textnorm.Collapse(s)
	if s == "" {
		return ""
	}
	if qty != "" {
		s = qty + "x " + s
	}
	return s
}
