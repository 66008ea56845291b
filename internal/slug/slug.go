// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug turns festival names and export purposes into identifiers
// that are safe in URLs and file names.
package slug

import (
	"strings"
	"unicode"
)

// Make returns the lowercase ASCII slug of s: runs of spaces, hyphens and
// underscores become one hyphen and every other symbol is dropped.
// "Eid al-Fitr" becomes "eid-al-fitr".
func Make(s string) string {
	return build(s, func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToLower(r)
		}
		return -1
	})
}

// Title is Make without case folding or the ASCII restriction, for names
// shown to people. "Eid al-Fitr" becomes "Eid-al-Fitr".
func Title(s string) string {
	return build(s, func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	})
}

// Valid reports whether s is already a slug as produced by Make.
func Valid(s string) bool {
	return s != "" && Make(s) == s
}

func build(s string, keep func(rune) rune) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			pending = b.Len() > 0
			continue
		}
		if k := keep(r); k >= 0 {
			if pending {
				b.WriteByte('-')
				pending = false
			}
			b.WriteRune(k)
		}
	}
	return b.String()
}
