// Package charset decodes dBase text and reports how many raw bytes each
// decoded character occupied in its source encoding.
//
// DBF files written by non-English GIS tools store names and values in a
// legacy code page (Big5, GBK, Shift_JIS, windows-125x, ...). Decoding is
// delegated to golang.org/x/text; the byte width of a character is obtained by
// re-encoding it with the same table, which is what lets a parser keep a byte
// cursor and a character cursor aligned.
package charset

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// UTF8 is the charset used when nothing else is known about a table.
var UTF8 = &Charset{name: "utf-8"}

// multibyte lists the WHATWG names of the double-byte code pages.
var multibyte = map[string]bool{
	"big5":      true,
	"gbk":       true,
	"gb18030":   true,
	"shift_jis": true,
	"euc-kr":    true,
	"euc-jp":    true,
}

// Charset is a resolved text encoding. It is safe for concurrent use.
type Charset struct {
	name string
	enc  encoding.Encoding // nil for UTF-8

	mu     sync.Mutex
	widths map[rune]int
}

// Lookup resolves an encoding by WHATWG label ("big5", "windows-1252") or IANA
// name ("IBM437"). Names are case-insensitive.
func Lookup(name string) (*Charset, error) {
	label := strings.ToLower(strings.TrimSpace(name))
	switch label {
	case "", "utf-8", "utf8":
		return UTF8, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		enc, err = ianaindex.IANA.Encoding(name)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
		}
		if enc == nil {
			return nil, fmt.Errorf("encoding %q is not supported", name)
		}
	}

	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical, err = ianaindex.IANA.Name(enc)
		if err != nil {
			canonical = label
		}
	}
	canonical = strings.ToLower(canonical)
	if canonical == "utf-8" {
		return UTF8, nil
	}

	// dBase text is ASCII compatible; UTF-16 and friends cannot be walked
	// byte by byte.
	ascii, err := enc.NewEncoder().String("A")
	if err != nil || ascii != "A" {
		return nil, fmt.Errorf("encoding %q is not ASCII compatible", name)
	}

	return &Charset{name: canonical, enc: enc}, nil
}

// MustLookup is like Lookup but panics on unknown names. Intended for tests
// and package-level tables.
func MustLookup(name string) *Charset {
	cs, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return cs
}

// Name returns the canonical lower-case name of the charset.
func (c *Charset) Name() string { return c.name }

// String implements fmt.Stringer.
func (c *Charset) String() string { return c.name }

// Multibyte reports whether a single character may span more than one byte.
func (c *Charset) Multibyte() bool {
	return c.enc == nil || multibyte[c.name]
}

// Decode converts raw bytes to a string. Invalid input is never an error:
// undecodable bytes become U+FFFD so that the caller can still align the text
// with the raw stream.
func (c *Charset) Decode(raw []byte) (string, error) {
	if c.enc == nil {
		return string(raw), nil
	}
	out, err := c.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", c.name, err)
	}
	return string(out), nil
}

// Encode converts s to raw bytes in this charset.
func (c *Charset) Encode(s string) (string, error) {
	if c.enc == nil {
		return s, nil
	}
	out, err := c.enc.NewEncoder().String(s)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", c.name, err)
	}
	return out, nil
}

// ByteWidth returns the number of bytes r occupies when encoded with c.
// Characters the table cannot encode count as a single byte; callers that hold
// the raw bytes should size utf8.RuneError with InvalidWidth instead.
func (c *Charset) ByteWidth(r rune) int {
	if r < utf8.RuneSelf {
		return 1
	}
	if c.enc == nil {
		if n := utf8.RuneLen(r); n > 0 {
			return n
		}
		return 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.widths[r]; ok {
		return n
	}
	n := 1
	if out, err := c.enc.NewEncoder().String(string(r)); err == nil && len(out) > 0 {
		n = len(out)
	}
	if c.widths == nil {
		c.widths = make(map[rune]int)
	}
	c.widths[r] = n
	return n
}

// InvalidWidth returns how many bytes at the start of raw a decoder of this
// charset folds into a single U+FFFD.
//
// UTF-8 replaces one byte at a time, except that the stream may hold an
// encoded U+FFFD. Other tables are asked directly: the decoder runs over a
// short window with room for one replacement character, and the bytes it
// consumed are the width. Each table has its own rules for which trail bytes
// it swallows (Shift_JIS 0xA0 is a single byte, EUC-KR keeps an ASCII trail
// for the next round), so no shared lead/trail rule fits them all.
func (c *Charset) InvalidWidth(raw []byte) int {
	if c.enc == nil {
		if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBF && raw[2] == 0xBD {
			return 3
		}
		return 1
	}
	if len(raw) < 2 {
		return 1
	}

	window := raw[:min(len(raw), invalidWindow)]
	var dst [3]byte // exactly one U+FFFD
	nDst, nSrc, _ := c.enc.NewDecoder().Transform(dst[:], window, len(window) == len(raw))
	if nSrc < 1 || string(dst[:nDst]) != string(utf8.RuneError) {
		return 1
	}
	return nSrc
}

// invalidWindow covers the longest sequence of any supported table (GB18030
// four-byte forms) with room to spare.
const invalidWindow = 8
