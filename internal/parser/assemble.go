package parser

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Projector converts a coordinate pair from the dataset's reference system to
// WGS84 longitude/latitude.
type Projector interface {
	Forward(x, y float64) (lon, lat float64, err error)
}

// TransformFunc adapts a plain function to Projector.
type TransformFunc func(x, y float64) (lon, lat float64, err error)

// Forward calls f(x, y).
func (f TransformFunc) Forward(x, y float64) (float64, float64, error) { return f(x, y) }

// Identity returns coordinates unchanged. It is used when a dataset has no
// .prj file.
var Identity Projector = TransformFunc(func(x, y float64) (float64, float64, error) {
	return x, y, nil
})

// AssembleOptions configures Assemble.
type AssembleOptions struct {
	// SplitLineParts emits multi-part polylines as MultiLineString instead of
	// a single LineString through every vertex.
	SplitLineParts bool

	// ValidateCoordinates rejects reprojected coordinates outside ±180/±90.
	ValidateCoordinates bool
}

// Assemble pairs shapes[i] with attrs[i], reprojects every coordinate through
// proj and returns the FeatureCollection. The collection bbox is the header
// extent with both corners reprojected independently.
func Assemble(header *ShapefileHeader, shapes []ShapeRecord, attrs []AttributeRecord, proj Projector, opts AssembleOptions) (*geojson.FeatureCollection, error) {
	if header == nil {
		return nil, &FormatError{File: "shp", Reason: "missing header"}
	}
	if len(shapes) != len(attrs) {
		return nil, &FormatError{
			File:   "dbf",
			Reason: fmt.Sprintf("%d shape records but %d attribute records", len(shapes), len(attrs)),
		}
	}
	if proj == nil {
		proj = Identity
	}

	fc := geojson.NewFeatureCollection()

	minLon, minLat, err := proj.Forward(header.BBox.MinX, header.BBox.MinY)
	if err != nil {
		return nil, fmt.Errorf("reproject bbox corner (%g, %g): %w", header.BBox.MinX, header.BBox.MinY, err)
	}
	maxLon, maxLat, err := proj.Forward(header.BBox.MaxX, header.BBox.MaxY)
	if err != nil {
		return nil, fmt.Errorf("reproject bbox corner (%g, %g): %w", header.BBox.MaxX, header.BBox.MaxY, err)
	}
	fc.BBox = geojson.BBox{minLon, minLat, maxLon, maxLat}

	for i, shape := range shapes {
		geometry, err := buildGeometry(shape, proj, opts)
		if err != nil {
			return nil, err
		}

		if opts.ValidateCoordinates {
			if err := ValidateGeometry(geometry); err != nil {
				return nil, fmt.Errorf("shp record %d: %w", shape.RecordNumber, err)
			}
		}

		feature := geojson.NewFeature(geometry)
		feature.Properties = geojson.Properties(attrs[i])
		if feature.Properties == nil {
			feature.Properties = geojson.Properties{}
		}
		fc.Append(feature)
	}

	return fc, nil
}

// buildGeometry maps one decoded record to an orb geometry.
func buildGeometry(shape ShapeRecord, proj Projector, opts AssembleOptions) (orb.Geometry, error) {
	switch g := shape.Geometry.(type) {
	case NullShape:
		return orb.Collection{}, nil

	case PointShape:
		return project(proj, shape.RecordNumber, g.X, g.Y)

	case MultiPartShape:
		switch g.Type {
		case ShapeMultiPoint:
			return projectRange(proj, shape.RecordNumber, g, 0, g.NumPoints(), func(n int) orb.MultiPoint {
				return make(orb.MultiPoint, 0, n)
			})

		case ShapePolyLine:
			if opts.SplitLineParts && len(g.Parts) > 1 {
				lines := make(orb.MultiLineString, 0, len(g.Parts))
				for _, r := range partRanges(g) {
					line, err := projectRange(proj, shape.RecordNumber, g, r[0], r[1], func(n int) orb.LineString {
						return make(orb.LineString, 0, n)
					})
					if err != nil {
						return nil, err
					}
					lines = append(lines, line)
				}
				return lines, nil
			}
			return projectRange(proj, shape.RecordNumber, g, 0, g.NumPoints(), func(n int) orb.LineString {
				return make(orb.LineString, 0, n)
			})

		case ShapePolygon:
			ranges := partRanges(g)
			polygon := make(orb.Polygon, 0, len(ranges))
			for _, r := range ranges {
				ring, err := projectRange(proj, shape.RecordNumber, g, r[0], r[1], func(n int) orb.Ring {
					return make(orb.Ring, 0, n)
				})
				if err != nil {
					return nil, err
				}
				polygon = append(polygon, ring)
			}
			return polygon, nil
		}
		return nil, checkShapeType(g.Type, shape.RecordNumber, 0)

	default:
		return nil, &FormatError{
			File:         "shp",
			RecordNumber: shape.RecordNumber,
			Reason:       fmt.Sprintf("unexpected geometry %T", shape.Geometry),
		}
	}
}

// partRanges returns the [start, end) point ranges of every part. A record
// with points but no parts is treated as a single part.
func partRanges(g MultiPartShape) [][2]int {
	if len(g.Parts) == 0 {
		if g.NumPoints() == 0 {
			return nil
		}
		return [][2]int{{0, g.NumPoints()}}
	}
	ranges := make([][2]int, len(g.Parts))
	for k := range g.Parts {
		start, end := g.PartRange(k)
		ranges[k] = [2]int{start, end}
	}
	return ranges
}

// projectRange reprojects points [start, end) of g into a point slice type.
func projectRange[S ~[]orb.Point](proj Projector, number int, g MultiPartShape, start, end int, alloc func(int) S) (S, error) {
	out := alloc(end - start)
	for i := start; i < end; i++ {
		x, y := g.Point(i)
		p, err := project(proj, number, x, y)
		if err != nil {
			var zero S
			return zero, err
		}
		out = append(out, p)
	}
	return out, nil
}

func project(proj Projector, number int, x, y float64) (orb.Point, error) {
	lon, lat, err := proj.Forward(x, y)
	if err != nil {
		return orb.Point{}, fmt.Errorf("shp record %d: reproject (%g, %g): %w", number, x, y, err)
	}
	return orb.Point{lon, lat}, nil
}
