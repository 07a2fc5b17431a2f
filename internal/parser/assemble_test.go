package parser

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

func pointsOf(xy ...float64) []float64 { return xy }

func TestAssembleGeometry(t *testing.T) {
	polygon := MultiPartShape{
		Type:   ShapePolygon,
		Parts:  []int32{0, 4},
		Points: pointsOf(0, 0, 0, 1, 1, 1, 0, 0, 5, 5, 6, 6),
	}
	line := MultiPartShape{
		Type:   ShapePolyLine,
		Parts:  []int32{0, 2},
		Points: pointsOf(0, 0, 1, 1, 2, 2, 3, 3),
	}

	tests := []struct {
		name  string
		shape ShapeGeometry
		opts  AssembleOptions
		want  orb.Geometry
	}{
		{
			name:  "point",
			shape: PointShape{X: 121.5, Y: 25},
			want:  orb.Point{121.5, 25},
		},
		{
			name:  "null becomes empty collection",
			shape: NullShape{},
			want:  orb.Collection{},
		},
		{
			name: "multipoint",
			shape: MultiPartShape{
				Type:   ShapeMultiPoint,
				Points: pointsOf(1, 2, 3, 4),
			},
			want: orb.MultiPoint{{1, 2}, {3, 4}},
		},
		{
			name:  "polyline is one path through every vertex",
			shape: line,
			want:  orb.LineString{{0, 0}, {1, 1}, {2, 2}, {3, 3}},
		},
		{
			name:  "polyline split by parts",
			shape: line,
			opts:  AssembleOptions{SplitLineParts: true},
			want:  orb.MultiLineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}}},
		},
		{
			name:  "polygon rings follow parts",
			shape: polygon,
			want: orb.Polygon{
				{{0, 0}, {0, 1}, {1, 1}, {0, 0}},
				{{5, 5}, {6, 6}},
			},
		},
		{
			name: "polygon without parts is one ring",
			shape: MultiPartShape{
				Type:   ShapePolygon,
				Points: pointsOf(0, 0, 1, 0, 1, 1, 0, 0),
			},
			want: orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shapes := []ShapeRecord{{RecordNumber: 1, Geometry: tt.shape}}
			attrs := []AttributeRecord{{"id": "1"}}
			fc, err := Assemble(&ShapefileHeader{}, shapes, attrs, Identity, tt.opts)
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}
			if len(fc.Features) != 1 {
				t.Fatalf("got %d features, want 1", len(fc.Features))
			}
			got := fc.Features[0].Geometry
			if got.GeoJSONType() != tt.want.GeoJSONType() {
				t.Fatalf("geometry type = %s, want %s", got.GeoJSONType(), tt.want.GeoJSONType())
			}
			if !orb.Equal(got, tt.want) {
				t.Errorf("geometry = %v, want %v", got, tt.want)
			}
			if fc.Features[0].Properties["id"] != "1" {
				t.Errorf("properties = %v", fc.Features[0].Properties)
			}
		})
	}
}

func TestAssemblePolygonRings(t *testing.T) {
	// parts [0, 4] over 6 points gives exactly two rings: [0,4) and [4,6).
	shape := MultiPartShape{
		Type:   ShapePolygon,
		Parts:  []int32{0, 4},
		Points: pointsOf(0, 0, 10, 0, 10, 10, 0, 0, 2, 2, 3, 3),
	}
	fc, err := Assemble(&ShapefileHeader{}, []ShapeRecord{{RecordNumber: 1, Geometry: shape}}, []AttributeRecord{{}}, nil, AssembleOptions{})
	if err != nil {
		t.Fatal(err)
	}

	polygon, ok := fc.Features[0].Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("geometry = %T, want orb.Polygon", fc.Features[0].Geometry)
	}
	if len(polygon) != 2 {
		t.Fatalf("got %d rings, want 2", len(polygon))
	}
	if len(polygon[0]) != 4 || len(polygon[1]) != 2 {
		t.Errorf("ring sizes = %d, %d; want 4, 2", len(polygon[0]), len(polygon[1]))
	}
	if polygon[1][0] != (orb.Point{2, 2}) {
		t.Errorf("second ring starts at %v, want [2 2]", polygon[1][0])
	}
}

func TestAssembleProjector(t *testing.T) {
	calls := 0
	shift := TransformFunc(func(x, y float64) (float64, float64, error) {
		calls++
		return x / 1000, y / 1000, nil
	})

	header := &ShapefileHeader{BBox: BBox{MinX: 1000, MinY: 2000, MaxX: 3000, MaxY: 4000}}
	shapes := []ShapeRecord{
		{RecordNumber: 1, Geometry: PointShape{X: 1500, Y: 2500}},
		{RecordNumber: 2, Geometry: MultiPartShape{Type: ShapePolyLine, Parts: []int32{0}, Points: pointsOf(1000, 2000, 3000, 4000)}},
	}
	attrs := []AttributeRecord{{}, {}}

	fc, err := Assemble(header, shapes, attrs, shift, AssembleOptions{})
	if err != nil {
		t.Fatal(err)
	}

	// Two bbox corners plus one call per vertex.
	if calls != 5 {
		t.Errorf("projector called %d times, want 5", calls)
	}
	wantBBox := []float64{1, 2, 3, 4}
	for i, v := range wantBBox {
		if fc.BBox[i] != v {
			t.Errorf("bbox = %v, want %v", fc.BBox, wantBBox)
			break
		}
	}
	if p := fc.Features[0].Geometry.(orb.Point); p != (orb.Point{1.5, 2.5}) {
		t.Errorf("point = %v, want [1.5 2.5]", p)
	}
}

func TestAssembleIdentityKeepsCoordinates(t *testing.T) {
	xs := []float64{0, -179.999999, 121.56789012345, 1e-9, 89.123456789}
	for _, x := range xs {
		lon, lat, err := Identity.Forward(x, x/2)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(lon-x) > 1e-12 || math.Abs(lat-x/2) > 1e-12 {
			t.Errorf("Identity.Forward(%v, %v) = (%v, %v)", x, x/2, lon, lat)
		}
	}
}

func TestAssembleErrors(t *testing.T) {
	failing := TransformFunc(func(x, y float64) (float64, float64, error) {
		if x > 100 {
			return 0, 0, errors.New("outside projection domain")
		}
		return x, y, nil
	})

	tests := []struct {
		name     string
		header   *ShapefileHeader
		shapes   []ShapeRecord
		attrs    []AttributeRecord
		proj     Projector
		opts     AssembleOptions
		target   error
		contains string
	}{
		{
			name:     "length mismatch",
			header:   &ShapefileHeader{},
			shapes:   []ShapeRecord{{RecordNumber: 1, Geometry: NullShape{}}},
			attrs:    nil,
			target:   ErrFormat,
			contains: "1 shape records but 0 attribute records",
		},
		{
			name:     "unsupported type in multipart",
			header:   &ShapefileHeader{},
			shapes:   []ShapeRecord{{RecordNumber: 3, Geometry: MultiPartShape{Type: ShapePolygonZ}}},
			attrs:    []AttributeRecord{{}},
			target:   ErrUnsupportedShape,
			contains: "PolygonZ",
		},
		{
			name:     "projector failure names the record",
			header:   &ShapefileHeader{},
			shapes:   []ShapeRecord{{RecordNumber: 7, Geometry: PointShape{X: 500, Y: 1}}},
			attrs:    []AttributeRecord{{}},
			proj:     failing,
			contains: "shp record 7: reproject (500, 1): outside projection domain",
		},
		{
			name:     "projector failure on bbox",
			header:   &ShapefileHeader{BBox: BBox{MaxX: 200}},
			shapes:   nil,
			attrs:    nil,
			proj:     failing,
			contains: "reproject bbox corner",
		},
		{
			name:     "invalid coordinate",
			header:   &ShapefileHeader{},
			shapes:   []ShapeRecord{{RecordNumber: 2, Geometry: PointShape{X: 200, Y: 10}}},
			attrs:    []AttributeRecord{{}},
			opts:     AssembleOptions{ValidateCoordinates: true},
			contains: "shp record 2: invalid Point geometry",
		},
		{
			name:     "missing header",
			target:   ErrFormat,
			contains: "missing header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := Assemble(tt.header, tt.shapes, tt.attrs, tt.proj, tt.opts)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if fc != nil {
				t.Error("expected no partial collection")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("error %v is not %v", err, tt.target)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err, tt.contains)
			}
		})
	}
}
