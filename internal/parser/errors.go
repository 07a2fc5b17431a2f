package parser

import (
	"errors"
	"fmt"
)

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrFormat           = errors.New("malformed shapefile data")
	ErrUnsupportedShape = errors.New("unsupported shape type")
	ErrEncodingMismatch = errors.New("attribute text does not match declared field widths")
)

// FormatError indicates a malformed or unrecognized binary structure.
// RecordNumber is 0 when the problem is in a file header.
type FormatError struct {
	File         string // "shp" or "dbf"
	RecordNumber int
	Offset       int
	Reason       string
}

func (e *FormatError) Error() string {
	if e.RecordNumber > 0 {
		return fmt.Sprintf("%s record %d (offset %d): %s", e.File, e.RecordNumber, e.Offset, e.Reason)
	}
	return fmt.Sprintf("%s header (offset %d): %s", e.File, e.Offset, e.Reason)
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// UnsupportedShapeError indicates a structurally valid shape type that is
// deliberately not implemented (Z, M and MultiPatch variants).
type UnsupportedShapeError struct {
	RecordNumber int
	Type         ShapeType
}

func (e *UnsupportedShapeError) Error() string {
	if e.RecordNumber > 0 {
		return fmt.Sprintf("shp record %d: unsupported shape type %s (%d)", e.RecordNumber, e.Type, int32(e.Type))
	}
	return fmt.Sprintf("shp header: unsupported shape type %s (%d)", e.Type, int32(e.Type))
}

// Is reports whether target is ErrUnsupportedShape.
func (e *UnsupportedShapeError) Is(target error) bool { return target == ErrUnsupportedShape }

// EncodingMismatchError indicates that the decoded attribute text could not be
// aligned with the declared field widths, usually because the wrong encoding
// was supplied. Record is 1-based; 0 means the field descriptor block.
type EncodingMismatchError struct {
	Charset string
	Record  int
	Field   string
	Reason  string
}

func (e *EncodingMismatchError) Error() string {
	if e.Record > 0 {
		return fmt.Sprintf("dbf record %d field %q: %s (encoding %s)", e.Record, e.Field, e.Reason, e.Charset)
	}
	return fmt.Sprintf("dbf field name %q: %s (encoding %s)", e.Field, e.Reason, e.Charset)
}

// Is reports whether target is ErrEncodingMismatch.
func (e *EncodingMismatchError) Is(target error) bool { return target == ErrEncodingMismatch }

// ErrInvalidCoordinate indicates a reprojected coordinate out of valid bounds
type ErrInvalidCoordinate struct {
	Lat, Lon float64
}

func (e *ErrInvalidCoordinate) Error() string {
	return fmt.Sprintf("invalid coordinate: lat=%f lon=%f (lat must be ±90, lon must be ±180)",
		e.Lat, e.Lon)
}

// ErrInvalidGeometry indicates an assembled geometry with invalid vertices
type ErrInvalidGeometry struct {
	Type   string
	Reason string
}

func (e *ErrInvalidGeometry) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("invalid geometry: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s geometry: %s", e.Type, e.Reason)
}
