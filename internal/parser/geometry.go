package parser

// ShapeGeometry is the decoded payload of one .shp record. It is a closed set:
// only NullShape, PointShape and MultiPartShape implement it, and every switch
// over it returns an error in its default branch.
type ShapeGeometry interface {
	// ShapeType returns the record's shape type code.
	ShapeType() ShapeType
	isShapeGeometry()
}

// NullShape is a record without geometry (type 0).
type NullShape struct{}

// PointShape is a single coordinate pair (type 1).
type PointShape struct {
	X, Y float64
}

// MultiPartShape is the shared layout of PolyLine (3), Polygon (5) and
// MultiPoint (8) records.
//
// Parts holds the index of the first point of each part; it is empty for
// MultiPoint. Points is an interleaved x,y array of 2*NumPoints values.
type MultiPartShape struct {
	Type                   ShapeType
	MinX, MinY, MaxX, MaxY float64
	Parts                  []int32
	Points                 []float64
}

func (NullShape) ShapeType() ShapeType        { return ShapeNull }
func (PointShape) ShapeType() ShapeType       { return ShapePoint }
func (m MultiPartShape) ShapeType() ShapeType { return m.Type }

func (NullShape) isShapeGeometry()      {}
func (PointShape) isShapeGeometry()     {}
func (MultiPartShape) isShapeGeometry() {}

// NumPoints returns the number of coordinate pairs.
func (m MultiPartShape) NumPoints() int { return len(m.Points) / 2 }

// Point returns the i-th coordinate pair.
func (m MultiPartShape) Point(i int) (x, y float64) {
	return m.Points[2*i], m.Points[2*i+1]
}

// PartRange returns the half-open point-index range [start, end) of part k.
// The last part runs to the end of the point array.
func (m MultiPartShape) PartRange(k int) (start, end int) {
	start = int(m.Parts[k])
	if k+1 < len(m.Parts) {
		return start, int(m.Parts[k+1])
	}
	return start, m.NumPoints()
}
