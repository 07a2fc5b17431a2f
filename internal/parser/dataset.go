package parser

import (
	"github.com/beetlebugorg/shp2geojson/internal/charset"
	"github.com/paulmach/orb/geojson"
)

// Dataset is one converted shapefile: the FeatureCollection plus the header
// metadata of the .shp and .dbf it came from.
type Dataset struct {
	shpHeader *ShapefileHeader
	dbfHeader *DBFHeader
	fields    []FieldDescriptor
	charset   *charset.Charset

	Collection *geojson.FeatureCollection
}

// ShapeType returns the shape type declared in the .shp header.
func (d *Dataset) ShapeType() ShapeType {
	if d.shpHeader == nil {
		return ShapeNull
	}
	return d.shpHeader.ShapeType
}

// Extent returns the unprojected extent from the .shp header.
func (d *Dataset) Extent() BBox {
	if d.shpHeader == nil {
		return BBox{}
	}
	return d.shpHeader.BBox
}

// Fields returns the attribute column descriptors in file order.
func (d *Dataset) Fields() []FieldDescriptor {
	return d.fields
}

// LastUpdate returns the .dbf last-update date.
func (d *Dataset) LastUpdate() DBFDate {
	if d.dbfHeader == nil {
		return DBFDate{}
	}
	return d.dbfHeader.LastUpdate
}

// Encoding returns the name of the charset the attributes were decoded with.
func (d *Dataset) Encoding() string {
	if d.charset == nil {
		return charset.UTF8.Name()
	}
	return d.charset.Name()
}

// FeatureCount returns the number of features in the collection.
func (d *Dataset) FeatureCount() int {
	if d.Collection == nil {
		return 0
	}
	return len(d.Collection.Features)
}
