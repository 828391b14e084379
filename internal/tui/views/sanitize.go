package views

import (
	"strings"
	"unicode"
)

// invisibleModifiers are code points that join or restyle the previous
// glyph. tcell measures them as separate cells, which shifts table
// columns; dropping them leaves the base emoji or letter.
var invisibleModifiers = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200d, Hi: 0x200d, Stride: 1}, // zero width joiner
		{Lo: 0xfe00, Hi: 0xfe0f, Stride: 1}, // variation selectors
	},
	R32: []unicode.Range32{
		{Lo: 0x1f3fb, Hi: 0x1f3ff, Stride: 1}, // skin tones
		{Lo: 0xe0100, Hi: 0xe01ef, Stride: 1}, // variation selectors supplement
	},
}

// sanitizeForTerminal strips invisibleModifiers from s.
func sanitizeForTerminal(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(invisibleModifiers, r) {
			return -1
		}
		return r
	}, s)
}
