// Package shp2geojson converts ESRI Shapefiles into GeoJSON FeatureCollections
// in WGS84 longitude/latitude.
//
// A shapefile is a set of sibling files sharing a base name: .shp holds the
// geometry, .dbf the attribute table, and the optional .prj and .cpg name the
// coordinate reference system and the attribute code page. The converter
// reads them from a ZIP archive, from a directory on disk, or from any
// location the Fetcher understands (local path, http(s)://, s3://).
//
// # Basic Usage
//
//	conv := shp2geojson.NewConverter(shp2geojson.DefaultOptions())
//	result, err := conv.ConvertLocation(ctx, "data/villages.zip")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, _ := json.Marshal(result.Collection)
//
// # Attribute Encoding
//
// Attribute text is decoded with, in order of preference: Options.Encoding,
// the .cpg sidecar, the language driver id in the .dbf header, then UTF-8.
// Multi-byte encodings such as Big5 are decoded to text first and then
// re-aligned with the byte widths of the field descriptors, so a field cut
// in the middle of a character keeps the whole character.
//
//	opts := shp2geojson.DefaultOptions()
//	opts.Encoding = "big5"
//	opts.StrictEncoding = true // fail instead of emitting garbled values
//
// # Coordinate Systems
//
// The .prj content (WKT) or Options.CRS (PROJ string, "EPSG:3826", WKT) picks
// the source system; every coordinate is transformed to WGS84 through PROJ.
// Datasets without a .prj are assumed to already be longitude/latitude.
//
// # Batch Conversion
//
// ConvertAll converts many inputs on a bounded worker pool:
//
//	results, errs := shp2geojson.ConvertAll(ctx, conv, inputs, shp2geojson.BatchOptions{
//	    Workers:    4,
//	    SkipErrors: true,
//	})
//
// # Errors
//
// Decoding failures are typed. Match them with errors.Is against
// ErrFormat, ErrUnsupportedShape and ErrEncodingMismatch, or with errors.As
// against *FormatError, *UnsupportedShapeError and *EncodingMismatchError.
package shp2geojson
