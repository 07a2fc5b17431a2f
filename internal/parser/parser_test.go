package parser

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/beetlebugorg/shp2geojson/internal/charset"
	"github.com/beetlebugorg/shp2geojson/internal/shptest"
	"github.com/paulmach/orb"
)

// BenchmarkParse benchmarks converting a 1000-polygon shapefile
func BenchmarkParse(b *testing.B) {
	records := make([]shptest.Record, 1000)
	rows := make([][]string, 1000)
	for i := range records {
		x := float64(i)
		records[i] = shptest.MultiPartRecord(shptest.Polygon, []int32{0},
			[][2]float64{{x, 0}, {x, 1}, {x + 1, 1}, {x + 1, 0}, {x, 0}})
		rows[i] = []string{"parcel", "1.00000000000e+002"}
	}
	in := Input{
		SHP: shptest.SHP(shptest.Polygon, [4]float64{0, 0, 1001, 1}, records...),
		DBF: shptest.Table{
			Fields: []shptest.Field{{Name: "NAME", Type: 'C', Length: 20}, {Name: "AREA", Type: 'F', Length: 19}},
			Rows:   rows,
		}.Bytes(),
	}

	parser := NewParser()
	opts := DefaultParseOptions()
	opts.ValidateCoordinates = false

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := parser.ParseWithOptions(in, opts); err != nil {
			b.Fatalf("parse failed: %v", err)
		}
	}
}

func taipei() Input {
	return Input{
		SHP: shptest.SHP(shptest.Point, [4]float64{121.5, 25.0, 121.5, 25.0}, shptest.PointRecord(121.5, 25.0)),
		DBF: shptest.Table{
			Fields: []shptest.Field{{Name: "name", Type: 'C', Length: 16}},
			Rows:   [][]string{{"Taipei"}},
		}.Bytes(),
	}
}

func TestParseTaipei(t *testing.T) {
	dataset, err := NewParser().Parse(taipei())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	fc := dataset.Collection
	if len(fc.Features) != 1 {
		t.Fatalf("got %d features, want 1", len(fc.Features))
	}
	if got := []float64(fc.BBox); len(got) != 4 || got[0] != 121.5 || got[1] != 25 || got[2] != 121.5 || got[3] != 25 {
		t.Errorf("bbox = %v, want [121.5 25 121.5 25]", fc.BBox)
	}

	f := fc.Features[0]
	if p, ok := f.Geometry.(orb.Point); !ok || p != (orb.Point{121.5, 25}) {
		t.Errorf("geometry = %#v, want Point [121.5 25]", f.Geometry)
	}
	if len(f.Properties) != 1 || f.Properties["name"] != "Taipei" {
		t.Errorf("properties = %v, want {name: Taipei}", f.Properties)
	}

	// The feature serializes as a plain RFC 7946 object.
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]interface{} `json:"properties"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != "Feature" || decoded.Geometry.Type != "Point" {
		t.Errorf("json types = %q/%q, want Feature/Point", decoded.Type, decoded.Geometry.Type)
	}
	if len(decoded.Geometry.Coordinates) != 2 || decoded.Geometry.Coordinates[0] != 121.5 || decoded.Geometry.Coordinates[1] != 25 {
		t.Errorf("coordinates = %v", decoded.Geometry.Coordinates)
	}
}

func TestParseDatasetMetadata(t *testing.T) {
	dataset, err := NewParser().Parse(taipei())
	if err != nil {
		t.Fatal(err)
	}
	if dataset.ShapeType() != ShapePoint {
		t.Errorf("ShapeType() = %s, want Point", dataset.ShapeType())
	}
	if dataset.Extent().MaxX != 121.5 {
		t.Errorf("Extent() = %+v", dataset.Extent())
	}
	if dataset.Encoding() != "utf-8" {
		t.Errorf("Encoding() = %q, want utf-8", dataset.Encoding())
	}
	if dataset.LastUpdate() != (DBFDate{Year: 2024, Month: 7, Day: 15}) {
		t.Errorf("LastUpdate() = %+v", dataset.LastUpdate())
	}
	if dataset.FeatureCount() != 1 || len(dataset.Fields()) != 1 {
		t.Errorf("FeatureCount() = %d, Fields() = %v", dataset.FeatureCount(), dataset.Fields())
	}
}

func TestParseLanguageDriverCharset(t *testing.T) {
	in := taipei()
	in.DBF = shptest.Table{
		Fields:         []shptest.Field{{Name: "name", Type: 'C', Length: 16}},
		Rows:           [][]string{{big5(t, "台北市")}},
		LanguageDriver: 0x4F,
	}.Bytes()

	dataset, err := NewParser().Parse(in)
	if err != nil {
		t.Fatal(err)
	}
	if dataset.Encoding() != "big5" {
		t.Errorf("Encoding() = %q, want big5", dataset.Encoding())
	}
	if got := dataset.Collection.Features[0].Properties["name"]; got != "台北市" {
		t.Errorf("name = %#v, want 台北市", got)
	}

	// An explicit charset overrides the language driver.
	in.Charset = charset.MustLookup("windows-1252")
	dataset, err = NewParser().Parse(in)
	if err != nil {
		t.Fatal(err)
	}
	if dataset.Encoding() != "windows-1252" {
		t.Errorf("Encoding() = %q, want windows-1252", dataset.Encoding())
	}
}

func TestParseErrors(t *testing.T) {
	good := taipei()

	tests := []struct {
		name   string
		in     Input
		opts   ParseOptions
		target error
	}{
		{
			name:   "corrupt shp",
			in:     Input{SHP: good.SHP[:50], DBF: good.DBF},
			opts:   DefaultParseOptions(),
			target: ErrFormat,
		},
		{
			name:   "corrupt dbf",
			in:     Input{SHP: good.SHP, DBF: good.DBF[:10]},
			opts:   DefaultParseOptions(),
			target: ErrFormat,
		},
		{
			name: "record count mismatch",
			in: Input{SHP: good.SHP, DBF: shptest.Table{
				Fields: []shptest.Field{{Name: "name", Type: 'C', Length: 16}},
				Rows:   [][]string{{"Taipei"}, {"Keelung"}},
			}.Bytes()},
			opts:   DefaultParseOptions(),
			target: ErrFormat,
		},
		{
			name: "strict encoding",
			in: Input{SHP: good.SHP, DBF: shptest.Table{
				Fields: []shptest.Field{{Name: "name", Type: 'C', Length: 16}},
				Rows:   [][]string{{big5(t, "台北市")}},
			}.Bytes(), Charset: charset.UTF8},
			opts:   ParseOptions{StrictEncoding: true},
			target: ErrEncodingMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataset, err := NewParser().ParseWithOptions(tt.in, tt.opts)
			if !errors.Is(err, tt.target) {
				t.Fatalf("error = %v, want %v", err, tt.target)
			}
			if dataset != nil {
				t.Error("expected no partial dataset")
			}
		})
	}
}
