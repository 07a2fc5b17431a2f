package parser

import (
	"unicode/utf8"

	"github.com/beetlebugorg/shp2geojson/internal/charset"
)

// textWalker keeps two cursors over one .dbf file: a byte offset into the raw
// stream and a rune index into the same file decoded with cs. Field names and
// values are sliced from the decoded text, but their positions are declared in
// bytes, so every rune advanced on the text side advances the byte side by the
// rune's encoded width.
type textWalker struct {
	raw  []byte
	text []rune
	cs   *charset.Charset

	bpos int // raw bytes covered by text[:cpos]
	cpos int
}

func newTextWalker(raw []byte, text string, cs *charset.Charset) *textWalker {
	if cs == nil {
		cs = charset.UTF8
	}
	return &textWalker{raw: raw, text: []rune(text), cs: cs}
}

// width returns the raw byte width of the rune under the text cursor.
func (w *textWalker) width() int {
	r := w.text[w.cpos]
	if r == utf8.RuneError {
		if w.bpos >= len(w.raw) {
			return 1
		}
		return w.cs.InvalidWidth(w.raw[w.bpos:])
	}
	return w.cs.ByteWidth(r)
}

// exhausted reports whether the decoded text has run out.
func (w *textWalker) exhausted() bool { return w.cpos >= len(w.text) }

// seek advances both cursors until the byte cursor reaches off. It reports
// false when the text ends first or when a rune straddles off, leaving the
// byte cursor past it. The walk never moves backwards.
func (w *textWalker) seek(off int) bool {
	for w.bpos < off {
		if w.exhausted() {
			return false
		}
		w.bpos += w.width()
		w.cpos++
	}
	return w.bpos == off
}

// slice returns the decoded characters that cover raw[off:off+n]. aligned is
// false when either edge falls inside a character or the text ran out.
func (w *textWalker) slice(off, n int) (s string, aligned bool) {
	aligned = w.seek(off)
	start := w.cpos
	if !w.seek(off + n) {
		aligned = false
	}
	return string(w.text[start:w.cpos]), aligned
}
