package parser

import (
	"fmt"

	"github.com/beetlebugorg/shp2geojson/internal/charset"
)

// Parser converts the raw files of one shapefile into a Dataset.
//
// A shapefile is a triad of files aligned by record position: .shp holds
// geometry, .dbf holds attributes, and the optional .prj names the coordinate
// system. The parser decodes .shp and .dbf independently and zips them
// index-for-index; reprojection is supplied by the caller as a Projector.
//
// References:
//   - ESRI Shapefile Technical Description (July 1998)
//   - dBASE III PLUS table file format (header, field descriptors, records)
type Parser interface {
	// Parse converts in with DefaultParseOptions.
	Parse(in Input) (*Dataset, error)

	// ParseWithOptions converts in with custom options.
	ParseWithOptions(in Input, opts ParseOptions) (*Dataset, error)
}

// Input holds the raw files of one shapefile.
type Input struct {
	SHP []byte
	DBF []byte

	// Charset decodes the .dbf text. When nil the table's language driver id
	// is consulted, then UTF-8 is assumed.
	Charset *charset.Charset
}

// ParseOptions configures parsing behavior
type ParseOptions struct {
	// Projector reprojects every coordinate. Nil means Identity.
	Projector Projector

	// StrictEncoding: if true, attribute text that does not line up with the
	// declared field widths is an error instead of garbled values.
	// Default: false
	StrictEncoding bool

	// DeletedField: if non-empty, each feature gets a bool property of this
	// name carrying the record's dBase deletion flag.
	DeletedField string

	// SplitLineParts: if true, multi-part polylines become MultiLineString
	// Default: false (one LineString through all vertices)
	SplitLineParts bool

	// ValidateCoordinates: if true, reprojected coordinates must be valid WGS84
	// Default: true
	ValidateCoordinates bool
}

// DefaultParseOptions returns parse options with defaults
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		Projector:           Identity,
		StrictEncoding:      false,
		DeletedField:        "",
		SplitLineParts:      false,
		ValidateCoordinates: true,
	}
}

// defaultParser implements the Parser interface
type defaultParser struct {
}

// NewParser creates a new shapefile parser
func NewParser() Parser {
	return &defaultParser{}
}

// Parse converts in with default options
func (p *defaultParser) Parse(in Input) (*Dataset, error) {
	return p.ParseWithOptions(in, DefaultParseOptions())
}

// ParseWithOptions converts in with custom options
func (p *defaultParser) ParseWithOptions(in Input, opts ParseOptions) (*Dataset, error) {
	// 1. Geometry
	shpHeader, shapes, err := DecodeShapes(in.SHP)
	if err != nil {
		return nil, fmt.Errorf("failed to decode shp: %w", err)
	}

	// 2. Attributes, decoded as text first so names and values are read in
	// the table's own encoding
	dbfHeader, err := ReadDBFHeader(in.DBF)
	if err != nil {
		return nil, fmt.Errorf("failed to decode dbf: %w", err)
	}
	cs := ResolveCharset(in.Charset, dbfHeader)
	text, err := cs.Decode(in.DBF)
	if err != nil {
		return nil, fmt.Errorf("failed to decode dbf text: %w", err)
	}
	dbfHeader, fields, attrs, err := DecodeAttributes(in.DBF, text, cs, AttributeOptions{
		StrictEncoding: opts.StrictEncoding,
		DeletedField:   opts.DeletedField,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode dbf: %w", err)
	}

	// 3. Zip and reproject
	fc, err := Assemble(shpHeader, shapes, attrs, opts.Projector, AssembleOptions{
		SplitLineParts:      opts.SplitLineParts,
		ValidateCoordinates: opts.ValidateCoordinates,
	})
	if err != nil {
		return nil, err
	}

	return &Dataset{
		shpHeader:  shpHeader,
		dbfHeader:  dbfHeader,
		fields:     fields,
		charset:    cs,
		Collection: fc,
	}, nil
}

// ResolveCharset picks the charset for a table: an explicit choice wins, then
// the header's language driver id, then UTF-8.
func ResolveCharset(explicit *charset.Charset, header *DBFHeader) *charset.Charset {
	if explicit != nil {
		return explicit
	}
	if header != nil {
		if cs, ok := charset.FromLanguageDriver(header.LanguageDriverID); ok {
			return cs
		}
	}
	return charset.UTF8
}
