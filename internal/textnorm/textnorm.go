// Package textnorm cleans transfer-encoded mail bodies into text that the
// order extractors can walk line by line or as markup.
package textnorm

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	softBreak  = regexp.MustCompile(`=\r?\n`)
	hexEscape  = regexp.MustCompile(`=([A-Fa-f0-9]{2})`)
	spaceRun   = regexp.MustCompile(` {2,}`)
	anySpace   = regexp.MustCompile(`\s+`)
	urlAlpha   = strings.NewReplacer("-", "+", "_", "/")
	whitespace = strings.NewReplacer("\u00a0", " ", "\t", " ", "\r", "")
)

// DecodeBase64URL decodes base64url data (as served by mail APIs) into UTF-8
// text. Missing padding is tolerated. Undecodable input yields "".
func DecodeBase64URL(data string) string {
	if data == "" {
		return ""
	}
	s := urlAlpha.Replace(data)
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ""
	}
	if !utf8.Valid(b) {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(b)
}

// DecodeQuotedPrintable removes soft line breaks and replaces every =XX
// escape with its byte. Malformed escapes are left untouched.
func DecodeQuotedPrintable(s string) string {
	if s == "" {
		return ""
	}
	s = softBreak.ReplaceAllString(s, "")
	return hexEscape.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.ParseUint(m[1:], 16, 8)
		if err != nil {
			return m
		}
		return string([]byte{byte(n)})
	})
}

// Whitespace maps non-breaking spaces and tabs to spaces, drops carriage
// returns and collapses runs of spaces. Newlines are kept.
func Whitespace(s string) string {
	return spaceRun.ReplaceAllString(whitespace.Replace(s), " ")
}

// Collapse turns every whitespace run (newlines included) into one space
// and trims the result.
func Collapse(s string) string {
	return strings.TrimSpace(anySpace.ReplaceAllString(strings.ReplaceAll(s, "\u00a0", " "), " "))
}

// Lines splits s into trimmed, non-empty lines.
func Lines(s string) []string {
	raw := strings.Split(s, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
