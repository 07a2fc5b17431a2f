package parser

import (
	"testing"

	"github.com/beetlebugorg/shp2geojson/internal/charset"
	"golang.org/x/text/encoding/traditionalchinese"
)

func big5(t *testing.T, s string) string {
	t.Helper()
	b, err := traditionalchinese.Big5.NewEncoder().String(s)
	if err != nil {
		t.Fatalf("big5 encode %q: %v", s, err)
	}
	return b
}

func TestTextWalkerSlice(t *testing.T) {
	cs := charset.MustLookup("big5")
	raw := []byte("ab" + big5(t, "台北市") + "cd")
	text, err := cs.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}

	w := newTextWalker(raw, text, cs)

	tests := []struct {
		off, n      int
		want        string
		wantAligned bool
	}{
		{0, 2, "ab", true},
		{2, 4, "台北", true},
		{6, 2, "市", true},
		{8, 2, "cd", true},
	}
	for _, tt := range tests {
		got, aligned := w.slice(tt.off, tt.n)
		if got != tt.want || aligned != tt.wantAligned {
			t.Errorf("slice(%d, %d) = %q, %v; want %q, %v", tt.off, tt.n, got, aligned, tt.want, tt.wantAligned)
		}
	}
	if !w.exhausted() {
		t.Error("expected walker to be exhausted")
	}
}

func TestTextWalkerStraddle(t *testing.T) {
	cs := charset.MustLookup("big5")
	raw := []byte(big5(t, "台北") + "x")
	text, err := cs.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}

	w := newTextWalker(raw, text, cs)
	got, aligned := w.slice(0, 3)
	if aligned {
		t.Error("expected slice ending inside a character to be misaligned")
	}
	if got != "台北" {
		t.Errorf("slice = %q, want %q", got, "台北")
	}

	// The next slice starts behind the byte cursor and cannot realign.
	if _, aligned := w.slice(3, 1); aligned {
		t.Error("expected slice after drift to be misaligned")
	}
}

func TestTextWalkerInvalidBytes(t *testing.T) {
	// Stray continuation bytes decode to one U+FFFD each in UTF-8 and must
	// still advance the byte cursor one byte at a time.
	raw := []byte{'a', 0xA5, 0x78, 'b'}
	w := newTextWalker(raw, string(raw), charset.UTF8)

	got, aligned := w.slice(0, 2)
	if !aligned || got != "a\ufffd" {
		t.Errorf("slice(0, 2) = %q, %v", got, aligned)
	}
	got, aligned = w.slice(2, 2)
	if !aligned || got != "xb" {
		t.Errorf("slice(2, 2) = %q, %v", got, aligned)
	}
}

func TestTextWalkerShortText(t *testing.T) {
	w := newTextWalker([]byte("abcdef"), "abc", nil)
	got, aligned := w.slice(1, 4)
	if aligned || !w.exhausted() {
		t.Errorf("expected misaligned exhausted walk, got aligned=%v", aligned)
	}
	if got != "bc" {
		t.Errorf("slice = %q, want %q", got, "bc")
	}
}
