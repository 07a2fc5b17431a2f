package parser

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/beetlebugorg/shp2geojson/internal/charset"
)

const (
	dbfHeaderLength     = 32
	dbfDescriptorLength = 32
	dbfFieldNameLength  = 10
	dbfTerminator       = 0x0D
	dbfDeletedFlag      = '*'
)

// scientific matches the fixed exponent layout dBase writes for F fields.
var scientific = regexp.MustCompile(`(?i)\d\.\d{11}e\+\d{3}`)

// DBFDate is the last-update date stored in the header.
type DBFDate struct {
	Year, Month, Day int
}

// DBFHeader is the fixed 32-byte dBase III header.
type DBFHeader struct {
	Version               byte
	LastUpdate            DBFDate
	NumberOfRecords       int
	HeaderBytes           int
	RecordBytes           int
	IncompleteTransaction bool
	Encrypted             bool
	MDX                   bool
	LanguageDriverID      byte
}

// FieldDescriptor describes one column of the attribute table.
type FieldDescriptor struct {
	Name           string
	Type           byte // C, N, F, D, L, M ...
	Length         int
	DecimalCount   int
	WorkAreaID     uint16
	SetFieldsFlag  byte
	IndexFieldFlag byte
}

// AttributeRecord maps field names to values. Values are strings, or float64
// when the text is in dBase scientific notation.
type AttributeRecord map[string]interface{}

// AttributeOptions configures DecodeAttributes.
type AttributeOptions struct {
	// StrictEncoding turns text that cannot be aligned with the declared field
	// widths into an EncodingMismatchError instead of garbled values.
	StrictEncoding bool

	// DeletedField, when set, stores each record's deletion flag as a bool
	// under this name. Deleted rows are always returned.
	DeletedField string
}

// ReadDBFHeader parses the fixed 32-byte header.
//
//	Byte 0      Version
//	Byte 1-3    Last update YY MM DD (YY + 1900)
//	Byte 4-7    Number of records    uint32 little-endian
//	Byte 8-9    Header length        uint16 little-endian
//	Byte 10-11  Record length        uint16 little-endian
//	Byte 14     Incomplete transaction flag
//	Byte 15     Encryption flag
//	Byte 28     MDX flag
//	Byte 29     Language driver id
func ReadDBFHeader(data []byte) (*DBFHeader, error) {
	if len(data) < dbfHeaderLength {
		return nil, &FormatError{
			File:   "dbf",
			Reason: fmt.Sprintf("need %d header bytes, have %d", dbfHeaderLength, len(data)),
		}
	}

	return &DBFHeader{
		Version: data[0],
		LastUpdate: DBFDate{
			Year:  1900 + int(data[1]),
			Month: int(data[2]),
			Day:   int(data[3]),
		},
		NumberOfRecords:       int(binary.LittleEndian.Uint32(data[4:8])),
		HeaderBytes:           int(binary.LittleEndian.Uint16(data[8:10])),
		RecordBytes:           int(binary.LittleEndian.Uint16(data[10:12])),
		IncompleteTransaction: data[14] != 0,
		Encrypted:             data[15] != 0,
		MDX:                   data[28] != 0,
		LanguageDriverID:      data[29],
	}, nil
}

// DecodeAttributes parses a .dbf file. data is the raw file and text is the
// same file decoded with cs; the binary header and descriptors are read from
// data, names and values from text.
func DecodeAttributes(data []byte, text string, cs *charset.Charset, opts AttributeOptions) (*DBFHeader, []FieldDescriptor, []AttributeRecord, error) {
	if cs == nil {
		cs = charset.UTF8
	}

	header, err := ReadDBFHeader(data)
	if err != nil {
		return nil, nil, nil, err
	}
	if header.HeaderBytes > len(data) || header.HeaderBytes < dbfHeaderLength+1 {
		return nil, nil, nil, &FormatError{
			File:   "dbf",
			Offset: 8,
			Reason: fmt.Sprintf("header length %d outside file of %d bytes", header.HeaderBytes, len(data)),
		}
	}

	walker := newTextWalker(data, text, cs)

	fields, err := readFieldDescriptors(data, header, walker, opts, cs)
	if err != nil {
		return nil, nil, nil, err
	}

	if opts.DeletedField != "" {
		for _, f := range fields {
			if f.Name == opts.DeletedField {
				return nil, nil, nil, fmt.Errorf("deleted flag property %q collides with a field of the same name", opts.DeletedField)
			}
		}
	}

	width := 1
	for _, f := range fields {
		width += f.Length
	}
	if width != header.RecordBytes {
		return nil, nil, nil, &FormatError{
			File:   "dbf",
			Offset: 10,
			Reason: fmt.Sprintf("record length %d, field lengths sum to %d", header.RecordBytes, width),
		}
	}

	end := header.HeaderBytes + header.NumberOfRecords*header.RecordBytes
	if header.NumberOfRecords < 0 || end > len(data) {
		return nil, nil, nil, &FormatError{
			File:   "dbf",
			Offset: 4,
			Reason: fmt.Sprintf("%d records of %d bytes do not fit in file of %d bytes",
				header.NumberOfRecords, header.RecordBytes, len(data)),
		}
	}

	records := make([]AttributeRecord, 0, header.NumberOfRecords)
	for i := 0; i < header.NumberOfRecords; i++ {
		record, err := readRecord(walker, header.HeaderBytes+i*header.RecordBytes, i+1, fields, opts, cs)
		if err != nil {
			return nil, nil, nil, err
		}
		records = append(records, record)
	}

	return header, fields, records, nil
}

// readFieldDescriptors walks the 32-byte descriptors up to the terminator.
//
//	Byte 0-10   Name (taken from the decoded text)
//	Byte 11     Type
//	Byte 16     Length
//	Byte 17     Decimal count
//	Byte 20-21  Work area id
//	Byte 23     Set fields flag
//	Byte 31     Index field flag
func readFieldDescriptors(data []byte, header *DBFHeader, walker *textWalker, opts AttributeOptions, cs *charset.Charset) ([]FieldDescriptor, error) {
	fields := make([]FieldDescriptor, 0)
	offset := dbfHeaderLength
	seen := make(map[string]bool)
	for {
		if offset >= header.HeaderBytes {
			return nil, &FormatError{
				File:   "dbf",
				Offset: offset,
				Reason: "field descriptors are not terminated by 0x0D",
			}
		}
		if data[offset] == dbfTerminator {
			break
		}
		if offset+dbfDescriptorLength > header.HeaderBytes {
			return nil, &FormatError{
				File:   "dbf",
				Offset: offset,
				Reason: fmt.Sprintf("field descriptor %d runs past the header", len(fields)+1),
			}
		}

		raw, aligned := walker.slice(offset, dbfFieldNameLength)
		name := raw
		if i := strings.IndexByte(name, 0); i >= 0 {
			name = name[:i]
		}
		name = strings.TrimSpace(name)

		if opts.StrictEncoding {
			if reason := driftReason(walker, aligned, name); reason != "" {
				return nil, &EncodingMismatchError{Charset: cs.Name(), Field: name, Reason: reason}
			}
		}

		d := data[offset : offset+dbfDescriptorLength]
		fields = append(fields, FieldDescriptor{
			Name:           uniqueFieldName(name, seen),
			Type:           d[11],
			Length:         int(d[16]),
			DecimalCount:   int(d[17]),
			WorkAreaID:     binary.LittleEndian.Uint16(d[20:22]),
			SetFieldsFlag:  d[23],
			IndexFieldFlag: d[31],
		})
		offset += dbfDescriptorLength
	}

	if len(fields) == 0 {
		return nil, &FormatError{File: "dbf", Offset: dbfHeaderLength, Reason: "no field descriptors"}
	}
	return fields, nil
}

// uniqueFieldName returns name, or name with a numeric suffix when an earlier
// descriptor already uses it.
func uniqueFieldName(name string, seen map[string]bool) string {
	unique := name
	for i := 1; seen[unique]; i++ {
		unique = fmt.Sprintf("%s_%d", name, i)
	}
	seen[unique] = true
	return unique
}

// readRecord slices one record out of the decoded text. start is the record's
// raw byte offset; number is 1-based.
func readRecord(walker *textWalker, start, number int, fields []FieldDescriptor, opts AttributeOptions, cs *charset.Charset) (AttributeRecord, error) {
	flag, aligned := walker.slice(start, 1)
	if opts.StrictEncoding && !aligned {
		return nil, &EncodingMismatchError{
			Charset: cs.Name(),
			Record:  number,
			Reason:  "record does not start on a character boundary",
		}
	}

	record := make(AttributeRecord, len(fields)+1)
	pos := start + 1
	for _, field := range fields {
		raw, aligned := walker.slice(pos, field.Length)
		value := strings.TrimSpace(strings.Trim(raw, "\x00"))

		if opts.StrictEncoding {
			if reason := driftReason(walker, aligned, value); reason != "" {
				return nil, &EncodingMismatchError{
					Charset: cs.Name(),
					Record:  number,
					Field:   field.Name,
					Reason:  reason,
				}
			}
		}

		record[field.Name] = typedValue(value)
		pos += field.Length
	}

	if opts.DeletedField != "" {
		record[opts.DeletedField] = flag == string(dbfDeletedFlag)
	}
	return record, nil
}

// driftReason explains why a sliced value cannot be trusted, or returns "".
func driftReason(walker *textWalker, aligned bool, value string) string {
	switch {
	case !aligned && walker.exhausted():
		return "decoded text ends before the declared field width"
	case !aligned:
		return "a multi-byte character straddles the field boundary"
	case strings.ContainsRune(value, utf8.RuneError):
		return "value contains bytes the encoding cannot decode"
	}
	return ""
}

// typedValue converts dBase scientific notation to float64 and leaves every
// other value as a string.
func typedValue(value string) interface{} {
	if scientific.MatchString(value) {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return value
}
