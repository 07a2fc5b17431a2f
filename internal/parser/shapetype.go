package parser

import "fmt"

// ShapeType is the ESRI shape type code stored in the .shp header and at the
// start of every record payload.
type ShapeType int32

// Shape type codes from the ESRI Shapefile Technical Description (1998).
const (
	ShapeNull        ShapeType = 0
	ShapePoint       ShapeType = 1
	ShapePolyLine    ShapeType = 3
	ShapePolygon     ShapeType = 5
	ShapeMultiPoint  ShapeType = 8
	ShapePointZ      ShapeType = 11
	ShapePolyLineZ   ShapeType = 13
	ShapePolygonZ    ShapeType = 15
	ShapeMultiPointZ ShapeType = 18
	ShapePointM      ShapeType = 21
	ShapePolyLineM   ShapeType = 23
	ShapePolygonM    ShapeType = 25
	ShapeMultiPointM ShapeType = 28
	ShapeMultiPatch  ShapeType = 31
)

var shapeTypeNames = map[ShapeType]string{
	ShapeNull:        "Null",
	ShapePoint:       "Point",
	ShapePolyLine:    "PolyLine",
	ShapePolygon:     "Polygon",
	ShapeMultiPoint:  "MultiPoint",
	ShapePointZ:      "PointZ",
	ShapePolyLineZ:   "PolyLineZ",
	ShapePolygonZ:    "PolygonZ",
	ShapeMultiPointZ: "MultiPointZ",
	ShapePointM:      "PointM",
	ShapePolyLineM:   "PolyLineM",
	ShapePolygonM:    "PolygonM",
	ShapeMultiPointM: "MultiPointM",
	ShapeMultiPatch:  "MultiPatch",
}

// String returns the ESRI name of the shape type, or "Shape(<code>)" for
// codes ESRI does not define.
func (t ShapeType) String() string {
	if name, ok := shapeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Shape(%d)", int32(t))
}

// Known reports whether t is any code in the ESRI shapefile format.
func (t ShapeType) Known() bool {
	_, ok := shapeTypeNames[t]
	return ok
}

// Supported reports whether records of type t can be decoded.
func (t ShapeType) Supported() bool {
	switch t {
	case ShapeNull, ShapePoint, ShapePolyLine, ShapePolygon, ShapeMultiPoint:
		return true
	}
	return false
}

// checkShapeType classifies a shape type code read at offset. Known but
// unimplemented codes become UnsupportedShapeError, anything else FormatError.
func checkShapeType(t ShapeType, recordNumber, offset int) error {
	if t.Supported() {
		return nil
	}
	if t.Known() {
		return &UnsupportedShapeError{RecordNumber: recordNumber, Type: t}
	}
	return &FormatError{
		File:         "shp",
		RecordNumber: recordNumber,
		Offset:       offset,
		Reason:       fmt.Sprintf("unknown shape type code %d", int32(t)),
	}
}
