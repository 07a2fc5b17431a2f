package shp2geojson

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/beetlebugorg/shp2geojson/internal/archive"
	"github.com/beetlebugorg/shp2geojson/internal/charset"
	"github.com/beetlebugorg/shp2geojson/internal/crs"
	"github.com/beetlebugorg/shp2geojson/internal/parser"
	"github.com/beetlebugorg/shp2geojson/internal/source"
	"github.com/rs/zerolog/log"
)

// Types re-exported from the decoding packages.
type (
	Bundle                = archive.Bundle
	Dataset               = parser.Dataset
	FieldDescriptor       = parser.FieldDescriptor
	ShapeType             = parser.ShapeType
	BBox                  = parser.BBox
	FormatError           = parser.FormatError
	UnsupportedShapeError = parser.UnsupportedShapeError
	EncodingMismatchError = parser.EncodingMismatchError
	StatusError           = source.StatusError
)

// Sentinel errors matched with errors.Is.
var (
	ErrFormat           = parser.ErrFormat
	ErrUnsupportedShape = parser.ErrUnsupportedShape
	ErrEncodingMismatch = parser.ErrEncodingMismatch
	ErrNoShapefile      = archive.ErrNoShapefile
	ErrUnknownEncoding  = errors.New("unknown attribute encoding")
)

// Fetcher reads the raw bytes at a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Converter turns shapefiles into GeoJSON. A Converter is safe for
// concurrent use; every conversion owns its own PROJ context.
type Converter struct {
	opts    Options
	parser  parser.Parser
	fetcher Fetcher
	cache   *SourceCache
}

// NewConverter returns a converter with the given options. A nil
// Options.Fetcher reads local paths, http(s):// and s3:// locations.
func NewConverter(opts Options) *Converter {
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = source.NewFetcher()
	}
	var cache *SourceCache
	if opts.CacheBytes != 0 {
		cache = NewSourceCache(opts.CacheBytes)
	}
	return &Converter{
		opts:    opts,
		parser:  parser.NewParser(),
		fetcher: fetcher,
		cache:   cache,
	}
}

// Options returns the converter's options.
func (c *Converter) Options() Options { return c.opts }

// Cache returns the source cache, or nil when caching is disabled.
func (c *Converter) Cache() *SourceCache { return c.cache }

// Result is one converted shapefile.
type Result struct {
	*Dataset

	// Name is the layer name (the .shp base name).
	Name string
	// CRS is the source coordinate system definition, empty when the
	// dataset had no .prj and none was given.
	CRS string
	// Transform describes the coordinate transform applied.
	Transform string
}

// Convert converts a bundle with the converter's options.
func (c *Converter) Convert(b *Bundle) (*Result, error) {
	return c.ConvertWithOptions(b, c.opts)
}

// ConvertWithOptions converts a bundle with per-call options. Fetcher and
// cache settings in opts are ignored.
func (c *Converter) ConvertWithOptions(b *Bundle, opts Options) (*Result, error) {
	if b == nil || b.SHP == nil || b.DBF == nil {
		return nil, fmt.Errorf("convert: %w", ErrNoShapefile)
	}
	start := time.Now()

	cs, err := resolveCharset(b, opts.Encoding)
	if err != nil {
		return nil, err
	}

	registry := crs.NewRegistry()
	defer registry.Close()

	def := strings.TrimSpace(opts.CRS)
	if def == "" && len(b.PRJ) > 0 {
		def = strings.TrimSpace(strings.TrimPrefix(string(b.PRJ), "\ufeff"))
	}

	projector := parser.Identity
	transform := "identity"
	if def != "" {
		if err := registry.Define("source", def); err != nil {
			return nil, err
		}
		def, _ = registry.Definition("source")
		t, err := registry.Transformer("source", crs.WGS84)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name, err)
		}
		projector = t
		transform = t.String()
	}

	dataset, err := c.parser.ParseWithOptions(parser.Input{
		SHP:     b.SHP,
		DBF:     b.DBF,
		Charset: cs,
	}, parser.ParseOptions{
		Projector:           projector,
		StrictEncoding:      opts.StrictEncoding,
		DeletedField:        opts.DeletedField,
		SplitLineParts:      opts.SplitLineParts,
		ValidateCoordinates: opts.ValidateCoordinates,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name, err)
	}

	log.Debug().
		Str("dataset", b.Name).
		Str("encoding", dataset.Encoding()).
		Bool("multibyte", cs.Multibyte()).
		Str("transform", transform).
		Int("features", dataset.FeatureCount()).
		Dur("duration", time.Since(start)).
		Msg("Converted shapefile")

	return &Result{
		Dataset:   dataset,
		Name:      b.Name,
		CRS:       def,
		Transform: transform,
	}, nil
}

// ConvertBytes converts a shapefile held in a ZIP archive. layer picks one
// shapefile when the archive holds several; empty means the first.
func (c *Converter) ConvertBytes(data []byte, layer string) (*Result, error) {
	if !archive.IsZip(data) {
		return nil, fmt.Errorf("convert: not a zip archive")
	}
	b, err := archive.OpenZip(data, layer)
	if err != nil {
		return nil, err
	}
	return c.Convert(b)
}

// ConvertLocation fetches and converts the shapefile at location. A local
// path ending in .shp is read together with its sibling files; anything
// else must be a ZIP archive.
func (c *Converter) ConvertLocation(ctx context.Context, location string) (*Result, error) {
	return c.convertLocation(ctx, location, c.opts)
}

func (c *Converter) convertLocation(ctx context.Context, location string, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !strings.Contains(location, "://") && strings.EqualFold(path.Ext(location), ".shp") {
		b, err := archive.FromDir(location)
		if err != nil {
			return nil, err
		}
		return c.ConvertWithOptions(b, opts)
	}

	data, err := c.fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	if !archive.IsZip(data) {
		return nil, fmt.Errorf("%s: not a zip archive", location)
	}
	b, err := archive.OpenZip(data, opts.Layer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return c.ConvertWithOptions(b, opts)
}

func (c *Converter) fetch(ctx context.Context, location string) ([]byte, error) {
	if c.cache == nil {
		return c.fetcher.Fetch(ctx, location)
	}
	return c.cache.Get(location, func() ([]byte, error) {
		return c.fetcher.Fetch(ctx, location)
	})
}

// resolveCharset picks the attribute charset from the explicit name, then
// the .cpg sidecar. A nil result lets the parser consult the .dbf language
// driver id.
func resolveCharset(b *Bundle, explicit string) (*charset.Charset, error) {
	if explicit != "" {
		cs, err := charset.Lookup(explicit)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrUnknownEncoding, explicit, err)
		}
		return cs, nil
	}
	if len(b.CPG) > 0 {
		cs, err := charset.FromCPG(string(b.CPG))
		if err == nil {
			return cs, nil
		}
		log.Debug().Err(err).Str("dataset", b.Name).Msg("Ignoring unreadable .cpg")
	}
	return nil, nil
}
