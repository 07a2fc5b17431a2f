// Package shptest builds in-memory .shp and .dbf files for tests.
package shptest

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"math"
	"strings"
)

// Shape type codes used by the builders.
const (
	Null       int32 = 0
	Point      int32 = 1
	PolyLine   int32 = 3
	Polygon    int32 = 5
	MultiPoint int32 = 8
	PointZ     int32 = 11
)

// Record is one .shp record payload.
type Record []byte

// NullRecord returns a type 0 payload.
func NullRecord() Record {
	return le(nil, Null)
}

// PointRecord returns a type 1 payload.
func PointRecord(x, y float64) Record {
	b := le(nil, Point)
	return lef(b, x, y)
}

// MultiPartRecord returns a payload with a parts array: PolyLine, Polygon or
// the parts layout of MultiPoint. The bounding box is
// computed from points.
func MultiPartRecord(shapeType int32, parts []int32, points [][2]float64) Record {
	b := le(nil, shapeType)
	b = lef(b, bounds(points)...)
	b = le(b, int32(len(parts)), int32(len(points)))
	b = le(b, parts...)
	for _, p := range points {
		b = lef(b, p[0], p[1])
	}
	return b
}

// MultiPointRecord returns a type 8 payload in the ESRI layout, without a
// parts array.
func MultiPointRecord(points [][2]float64) Record {
	b := le(nil, MultiPoint)
	b = lef(b, bounds(points)...)
	b = le(b, int32(len(points)))
	for _, p := range points {
		b = lef(b, p[0], p[1])
	}
	return b
}

// RawRecord returns a payload that starts with an arbitrary shape type code.
func RawRecord(shapeType int32, rest ...byte) Record {
	return append(le(nil, shapeType), rest...)
}

// SHP assembles a complete .shp file. bbox is minX, minY, maxX, maxY.
func SHP(shapeType int32, bbox [4]float64, records ...Record) []byte {
	size := 100
	for _, r := range records {
		size += 8 + len(r)
	}

	out := make([]byte, 100, size)
	binary.BigEndian.PutUint32(out[0:4], 9994)
	binary.BigEndian.PutUint32(out[24:28], uint32(size/2))
	binary.LittleEndian.PutUint32(out[28:32], 1000)
	binary.LittleEndian.PutUint32(out[32:36], uint32(shapeType))
	for i, v := range bbox {
		binary.LittleEndian.PutUint64(out[36+8*i:], math.Float64bits(v))
	}

	for i, r := range records {
		var head [8]byte
		binary.BigEndian.PutUint32(head[0:4], uint32(i+1))
		binary.BigEndian.PutUint32(head[4:8], uint32(len(r)/2))
		out = append(out, head[:]...)
		out = append(out, r...)
	}
	return out
}

// Field describes one .dbf column. Name is raw bytes in the table's encoding.
type Field struct {
	Name     string
	Type     byte
	Length   int
	Decimals int
}

// Table describes a .dbf file. Row values are raw bytes in the table's
// encoding; they are padded with spaces to the field length, or truncated.
type Table struct {
	Fields         []Field
	Rows           [][]string
	Deleted        map[int]bool
	LanguageDriver byte
}

// Bytes encodes the table as a dBase III file.
func (t Table) Bytes() []byte {
	headerLen := 32 + 32*len(t.Fields) + 1
	recordLen := 1
	for _, f := range t.Fields {
		recordLen += f.Length
	}

	out := make([]byte, 32, headerLen+recordLen*len(t.Rows)+1)
	out[0] = 0x03
	out[1], out[2], out[3] = 124, 7, 15 // 2024-07-15
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(t.Rows)))
	binary.LittleEndian.PutUint16(out[8:10], uint16(headerLen))
	binary.LittleEndian.PutUint16(out[10:12], uint16(recordLen))
	out[29] = t.LanguageDriver

	for _, f := range t.Fields {
		d := make([]byte, 32)
		copy(d[0:11], f.Name)
		d[11] = f.Type
		d[16] = byte(f.Length)
		d[17] = byte(f.Decimals)
		out = append(out, d...)
	}
	out = append(out, 0x0D)

	for i, row := range t.Rows {
		if t.Deleted[i] {
			out = append(out, '*')
		} else {
			out = append(out, ' ')
		}
		for j, f := range t.Fields {
			v := ""
			if j < len(row) {
				v = row[j]
			}
			if len(v) > f.Length {
				v = v[:f.Length]
			}
			out = append(out, v...)
			out = append(out, strings.Repeat(" ", f.Length-len(v))...)
		}
	}
	return append(out, 0x1A)
}

// Entry is one file of a ZIP archive.
type Entry struct {
	Name string
	Data []byte
}

// Zip packs entries into a ZIP archive in the given order.
func Zip(entries ...Entry) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := w.Create(e.Name)
		if err != nil {
			panic(err)
		}
		if _, err := f.Write(e.Data); err != nil {
			panic(err)
		}
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func bounds(points [][2]float64) []float64 {
	if len(points) == 0 {
		return []float64{0, 0, 0, 0}
	}
	minX, minY, maxX, maxY := points[0][0], points[0][1], points[0][0], points[0][1]
	for _, p := range points[1:] {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}
	return []float64{minX, minY, maxX, maxY}
}

func le(b []byte, vs ...int32) []byte {
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint32(b, uint32(v))
	}
	return b
}

func lef(b []byte, vs ...float64) []byte {
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
	}
	return b
}
