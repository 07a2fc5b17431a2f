package charset

import (
	"fmt"
	"strconv"
	"strings"
)

// languageDrivers maps the dBase language driver id (header byte 29) to an
// encoding label. Only ids seen in shapefiles produced by ArcGIS, QGIS and
// GDAL are listed.
var languageDrivers = map[byte]string{
	0x01: "IBM437",
	0x02: "IBM850",
	0x03: "windows-1252",
	0x04: "macintosh",
	0x13: "shift_jis",
	0x4D: "gbk",
	0x4E: "euc-kr",
	0x4F: "big5",
	0x57: "windows-1252",
	0x58: "windows-1252",
	0x59: "windows-1252",
	0x64: "IBM852",
	0x65: "ibm866",
	0x78: "big5",
	0x79: "euc-kr",
	0x7A: "gbk",
	0x7B: "shift_jis",
	0x7C: "windows-874",
	0x7D: "windows-1255",
	0x7E: "windows-1256",
	0xC8: "windows-1250",
	0xC9: "windows-1251",
	0xCA: "windows-1254",
	0xCB: "windows-1253",
	0xCC: "windows-1257",
}

// codePages maps Windows/OEM code page numbers, as written in .cpg files,
// to encoding labels.
var codePages = map[int]string{
	437:   "IBM437",
	850:   "IBM850",
	852:   "IBM852",
	866:   "ibm866",
	874:   "windows-874",
	932:   "shift_jis",
	936:   "gbk",
	949:   "euc-kr",
	950:   "big5",
	1250:  "windows-1250",
	1251:  "windows-1251",
	1252:  "windows-1252",
	1253:  "windows-1253",
	1254:  "windows-1254",
	1255:  "windows-1255",
	1256:  "windows-1256",
	1257:  "windows-1257",
	1258:  "windows-1258",
	20932: "euc-jp",
	28591: "iso-8859-1",
	28592: "iso-8859-2",
	28595: "iso-8859-5",
	54936: "gb18030",
	65001: "utf-8",
}

// FromLanguageDriver resolves a DBF language driver id. It returns false for
// 0x00 (not set) and for ids without a known mapping.
func FromLanguageDriver(id byte) (*Charset, bool) {
	label, ok := languageDrivers[id]
	if !ok {
		return nil, false
	}
	cs, err := Lookup(label)
	if err != nil {
		return nil, false
	}
	return cs, true
}

// FromCPG resolves the content of a .cpg sidecar file. Accepted forms include
// "UTF-8", "65001", "1252", "ANSI 1252", "CP950" and any label Lookup knows.
func FromCPG(content string) (*Charset, error) {
	text := strings.TrimSpace(strings.TrimPrefix(content, "\ufeff"))
	if text == "" {
		return nil, fmt.Errorf("empty code page file")
	}

	number := strings.ToUpper(text)
	for _, prefix := range []string{"ANSI", "OEM", "CP", "WINDOWS-"} {
		number = strings.TrimSpace(strings.TrimPrefix(number, prefix))
	}
	if n, err := strconv.Atoi(number); err == nil {
		label, ok := codePages[n]
		if !ok {
			return nil, fmt.Errorf("unsupported code page %d", n)
		}
		return Lookup(label)
	}

	return Lookup(text)
}
