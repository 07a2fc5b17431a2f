package shp2geojson

// Options configures conversion.
type Options struct {
	// Encoding names the attribute charset ("big5", "windows-1252", "cp950").
	// Empty means .cpg, then the .dbf language driver id, then UTF-8.
	Encoding string

	// CRS overrides the .prj content: a PROJ string, "EPSG:3826" or WKT.
	CRS string

	// Layer picks a shapefile by base name inside a multi-layer archive.
	Layer string

	// StrictEncoding fails on attribute text that does not line up with the
	// declared field widths instead of emitting garbled values.
	StrictEncoding bool

	// SplitLineParts emits multi-part polylines as MultiLineString.
	SplitLineParts bool

	// ValidateCoordinates rejects transformed coordinates outside ±180/±90.
	ValidateCoordinates bool

	// DeletedField, when set, adds a bool property of this name carrying the
	// record's deletion flag.
	DeletedField string

	// Fetcher reads remote and local locations. Nil uses the built-in one.
	Fetcher Fetcher

	// CacheBytes bounds the cache of fetched archives shared between
	// conversions of the same location. 0 disables it, negative is unbounded.
	CacheBytes int64
}

// DefaultOptions returns options with coordinate validation on.
func DefaultOptions() Options {
	return Options{
		ValidateCoordinates: true,
	}
}
