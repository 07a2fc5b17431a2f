package parser

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	shpFileCode        = 0x0000270a // 9994
	shpHeaderLength    = 100
	recordHeaderLength = 8
)

// BBox is the extent stored in the .shp header.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
	MinZ, MaxZ, MinM, MaxM float64
}

// ShapefileHeader is the fixed 100-byte .shp header.
type ShapefileHeader struct {
	FileCode        int32
	FileLengthWords int32 // total file length in 16-bit words, header included
	Version         int32
	ShapeType       ShapeType
	BBox            BBox
}

// ShapeRecord is one variable-length record of the .shp body. File order is
// significant: the i-th record pairs with the i-th .dbf row.
type ShapeRecord struct {
	RecordNumber       int
	ContentLengthWords int
	Geometry           ShapeGeometry
}

// DecodeShapes parses a complete .shp buffer.
//
// Layout (ESRI Shapefile Technical Description):
//
//	Byte 0     File code 9994        int32 big-endian
//	Byte 24    File length (words)   int32 big-endian
//	Byte 28    Version               int32 little-endian
//	Byte 32    Shape type            int32 little-endian
//	Byte 36    Xmin Ymin Xmax Ymax Zmin Zmax Mmin Mmax   float64 little-endian
//	Byte 100   records: number (BE int32), content length in words (BE int32), payload (LE)
//
// Any error aborts the decode; no partial record slice is returned.
func DecodeShapes(data []byte) (*ShapefileHeader, []ShapeRecord, error) {
	header, err := parseShapefileHeader(data)
	if err != nil {
		return nil, nil, err
	}

	total := int(header.FileLengthWords) * 2
	if total < shpHeaderLength || total > len(data) {
		return nil, nil, &FormatError{
			File:   "shp",
			Offset: 24,
			Reason: fmt.Sprintf("declared file length %d bytes, buffer holds %d", total, len(data)),
		}
	}

	records := make([]ShapeRecord, 0)
	offset := shpHeaderLength
	for offset < total {
		if offset+recordHeaderLength > total {
			return nil, nil, &FormatError{
				File:   "shp",
				Offset: offset,
				Reason: fmt.Sprintf("truncated record header after record %d", len(records)),
			}
		}

		number := int(int32(binary.BigEndian.Uint32(data[offset : offset+4])))
		words := int(int32(binary.BigEndian.Uint32(data[offset+4 : offset+8])))
		start := offset + recordHeaderLength
		end := start + words*2
		if words < 2 || end > total {
			return nil, nil, &FormatError{
				File:         "shp",
				RecordNumber: number,
				Offset:       offset,
				Reason:       fmt.Sprintf("content length of %d words does not fit in file", words),
			}
		}

		geometry, consumed, err := decodeShape(data[start:end], number, start)
		if err != nil {
			return nil, nil, err
		}

		// The payload size computed from the shape's own counts must agree
		// with the length declared in the record header.
		if consumed != words*2 {
			return nil, nil, &FormatError{
				File:         "shp",
				RecordNumber: number,
				Offset:       start,
				Reason:       fmt.Sprintf("declared %d payload bytes, decoded %d", words*2, consumed),
			}
		}

		records = append(records, ShapeRecord{
			RecordNumber:       number,
			ContentLengthWords: words,
			Geometry:           geometry,
		})
		offset = end
	}

	return header, records, nil
}

// parseShapefileHeader reads the fixed 100-byte header.
func parseShapefileHeader(data []byte) (*ShapefileHeader, error) {
	if len(data) < shpHeaderLength {
		return nil, &FormatError{
			File:   "shp",
			Reason: fmt.Sprintf("need %d header bytes, have %d", shpHeaderLength, len(data)),
		}
	}

	header := &ShapefileHeader{
		FileCode:        int32(binary.BigEndian.Uint32(data[0:4])),
		FileLengthWords: int32(binary.BigEndian.Uint32(data[24:28])),
		Version:         int32(binary.LittleEndian.Uint32(data[28:32])),
		ShapeType:       ShapeType(int32(binary.LittleEndian.Uint32(data[32:36]))),
	}
	if header.FileCode != shpFileCode {
		return nil, &FormatError{
			File:   "shp",
			Reason: fmt.Sprintf("file code 0x%08x, want 0x%08x", uint32(header.FileCode), shpFileCode),
		}
	}
	if err := checkShapeType(header.ShapeType, 0, 32); err != nil {
		return nil, err
	}

	r := &payloadReader{buf: data[:shpHeaderLength], off: 36}
	header.BBox = BBox{
		MinX: r.float64(), MinY: r.float64(), MaxX: r.float64(), MaxY: r.float64(),
		MinZ: r.float64(), MaxZ: r.float64(), MinM: r.float64(), MaxM: r.float64(),
	}

	return header, nil
}

// decodeShape decodes one record payload and reports how many bytes it used.
// base is the payload's offset in the file, used for error reporting.
func decodeShape(payload []byte, number, base int) (ShapeGeometry, int, error) {
	r := &payloadReader{buf: payload}
	shapeType := ShapeType(r.int32())
	if r.err != nil {
		return nil, 0, r.formatError(number, base, "shape type")
	}
	if err := checkShapeType(shapeType, number, base); err != nil {
		return nil, 0, err
	}

	var geometry ShapeGeometry
	switch shapeType {
	case ShapeNull:
		geometry = NullShape{}

	case ShapePoint:
		x, y := r.float64(), r.float64()
		geometry = PointShape{X: x, Y: y}

	case ShapePolyLine, ShapePolygon:
		shape := MultiPartShape{Type: shapeType}
		shape.MinX, shape.MinY, shape.MaxX, shape.MaxY = r.float64(), r.float64(), r.float64(), r.float64()
		numParts := int(r.int32())
		if err := r.parts(&shape, numParts, number, base); err != nil {
			return nil, 0, err
		}
		geometry = shape

	case ShapeMultiPoint:
		shape := MultiPartShape{Type: shapeType}
		shape.MinX, shape.MinY, shape.MaxX, shape.MaxY = r.float64(), r.float64(), r.float64(), r.float64()
		count := int(r.int32())
		// Two layouts are in use: ESRI writes numPoints then points, others
		// write the polyline layout with a parts array. The declared content
		// length tells them apart.
		if r.err == nil && r.fits(count, 16) && r.off+16*count == len(r.buf) {
			shape.Points = r.points(count)
		} else if err := r.parts(&shape, count, number, base); err != nil {
			return nil, 0, err
		}
		geometry = shape

	default:
		return nil, 0, checkShapeType(shapeType, number, base)
	}

	if r.err != nil {
		return nil, 0, r.formatError(number, base, shapeType.String()+" payload")
	}
	return geometry, r.off, nil
}

// validateParts checks that part offsets are ascending and inside the point
// array so that rings can be sliced without bounds checks later.
func validateParts(shape MultiPartShape, number, base int) error {
	numPoints := int32(shape.NumPoints())
	prev := int32(0)
	for k, start := range shape.Parts {
		if start < prev || start > numPoints {
			return &FormatError{
				File:         "shp",
				RecordNumber: number,
				Offset:       base,
				Reason:       fmt.Sprintf("part %d starts at point %d of %d", k, start, numPoints),
			}
		}
		prev = start
	}
	return nil
}

// parts reads numPoints, the parts array and the points of a multi-part
// payload whose part count has already been read.
func (r *payloadReader) parts(shape *MultiPartShape, numParts, number, base int) error {
	numPoints := int(r.int32())
	if r.err == nil && !r.fits(numParts, 4) {
		r.err = fmt.Errorf("%d parts do not fit in %d remaining bytes", numParts, len(r.buf)-r.off)
		return r.formatError(number, base, "parts")
	}
	shape.Parts = make([]int32, 0, max(numParts, 0))
	for i := 0; i < numParts && r.err == nil; i++ {
		shape.Parts = append(shape.Parts, r.int32())
	}
	shape.Points = r.points(numPoints)
	if r.err == nil {
		return validateParts(*shape, number, base)
	}
	return nil
}

// payloadReader walks a little-endian payload. The first read past the end of
// the buffer sets err; later reads return zero values.
type payloadReader struct {
	buf []byte
	off int
	err error
}

func (r *payloadReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("need %d bytes at offset %d, have %d", n, r.off, len(r.buf)-r.off)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *payloadReader) int32() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (r *payloadReader) float64() float64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// fits reports whether count items of size bytes remain in the buffer.
func (r *payloadReader) fits(count, size int) bool {
	return count >= 0 && count <= (len(r.buf)-r.off)/size
}

// points reads count interleaved x,y pairs.
func (r *payloadReader) points(count int) []float64 {
	if r.err != nil {
		return nil
	}
	if !r.fits(count, 16) {
		r.err = fmt.Errorf("%d points do not fit in %d remaining bytes", count, len(r.buf)-r.off)
		return nil
	}
	points := make([]float64, 2*count)
	for i := range points {
		points[i] = r.float64()
	}
	return points
}

func (r *payloadReader) formatError(number, base int, what string) error {
	return &FormatError{
		File:         "shp",
		RecordNumber: number,
		Offset:       base + r.off,
		Reason:       fmt.Sprintf("reading %s: %v", what, r.err),
	}
}
