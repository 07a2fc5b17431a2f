// Package crs resolves coordinate reference systems and builds forward
// transforms to WGS84 longitude/latitude.
//
// Definitions are PROJ strings, "AUTHORITY:CODE" names, or WKT as found in
// .prj files. Transforms are delegated to PROJ through github.com/pebbe/proj;
// definitions that already describe geographic WGS84 get an identity
// transform without touching PROJ.
package crs

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/pebbe/proj/v5"
)

// WGS84 is the name of the target system: EPSG:4326 in longitude, latitude
// order.
const WGS84 = "WGS84"

// wgs84LonLat is the PROJ definition registered under WGS84. PROJ honors the
// authority axis order for "EPSG:4326" (lat, lon); this definition keeps
// GeoJSON order.
const wgs84LonLat = "+proj=longlat +datum=WGS84 +no_defs +type=crs"

// ErrUnknownCRS is returned for names that were never defined.
var ErrUnknownCRS = errors.New("unknown coordinate reference system")

// Registry maps names to CRS definitions and owns the PROJ context used to
// build transforms. PROJ contexts must not be shared between goroutines, so
// create one Registry per conversion.
type Registry struct {
	defs map[string]string

	mu   sync.Mutex
	ctx  *proj.Context
	pjs  []*proj.PJ
	done bool
}

// NewRegistry returns a registry with WGS84 predefined.
func NewRegistry() *Registry {
	return &Registry{
		defs: map[string]string{WGS84: wgs84LonLat},
	}
}

// Define registers definition under name, replacing any earlier definition.
func (r *Registry) Define(name, definition string) error {
	name = strings.TrimSpace(name)
	definition = strings.TrimSpace(strings.TrimPrefix(definition, "\ufeff"))
	if name == "" {
		return errors.New("crs: empty name")
	}
	if definition == "" {
		return fmt.Errorf("crs: empty definition for %q", name)
	}
	r.defs[name] = definition
	return nil
}

// Definition returns the definition registered under name.
func (r *Registry) Definition(name string) (string, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Transformer returns the forward transform from src to dst.
func (r *Registry) Transformer(src, dst string) (*Transformer, error) {
	srcDef, ok := r.defs[src]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCRS, src)
	}
	dstDef, ok := r.defs[dst]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCRS, dst)
	}

	if srcDef == dstDef || (IsWGS84(srcDef) && IsWGS84(dstDef)) {
		return &Transformer{src: src, dst: dst}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return nil, errors.New("crs: registry is closed")
	}
	if r.ctx == nil {
		r.ctx = proj.NewContext()
	}
	pj, err := r.ctx.CreateCRS2CRS(srcDef, dstDef)
	if err != nil {
		return nil, fmt.Errorf("crs: create transform %s -> %s: %w", src, dst, err)
	}
	r.pjs = append(r.pjs, pj)

	return &Transformer{src: src, dst: dst, pj: pj}, nil
}

// Close releases every PROJ object created by the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return nil
	}
	r.done = true
	for _, pj := range r.pjs {
		pj.Close()
	}
	r.pjs = nil
	if r.ctx != nil {
		r.ctx.Close()
		r.ctx = nil
	}
	return nil
}

// Transformer converts coordinates from one system to another.
type Transformer struct {
	src, dst string
	pj       *proj.PJ // nil for identity
}

// Identity reports whether the transform leaves coordinates unchanged.
func (t *Transformer) Identity() bool { return t.pj == nil }

// String describes the transform for logs.
func (t *Transformer) String() string {
	if t.Identity() {
		return fmt.Sprintf("%s -> %s (identity)", t.src, t.dst)
	}
	return fmt.Sprintf("%s -> %s", t.src, t.dst)
}

// Forward transforms one coordinate pair.
func (t *Transformer) Forward(x, y float64) (float64, float64, error) {
	if t.pj == nil {
		return x, y, nil
	}
	u, v, _, _, err := t.pj.Trans(proj.Fwd, x, y, 0, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("crs: transform (%g, %g): %w", x, y, err)
	}
	if math.IsInf(u, 0) || math.IsInf(v, 0) || math.IsNaN(u) || math.IsNaN(v) {
		return 0, 0, fmt.Errorf("crs: transform (%g, %g): outside the projection domain", x, y)
	}
	return u, v, nil
}

var (
	wktProjected  = regexp.MustCompile(`(?i)^\s*(PROJCS|PROJCRS|PROJECTEDCRS|COMPD_CS|COMPOUNDCRS)\s*\[`)
	wktGeographic = regexp.MustCompile(`(?i)^\s*(GEOGCS|GEOGCRS|GEODCRS|GEOGRAPHICCRS)\s*\[`)
	wktWGS84Datum = regexp.MustCompile(`(?i)DATUM\s*\[\s*"(D_WGS_1984|WGS_1984|WGS 84|World Geodetic System 1984)"`)
	wktPrimeShift = regexp.MustCompile(`(?i)PRIMEM\s*\[\s*"[^"]*"\s*,\s*([-+0-9.eE]+)`)
	wktAxisLatLon = regexp.MustCompile(`(?i)AXIS\s*\[\s*"[^"]*"\s*,\s*NORTH`)
)

// IsWGS84 reports whether definition describes geographic WGS84 with
// longitude first, so that coordinates need no transform.
func IsWGS84(definition string) bool {
	def := strings.TrimSpace(definition)
	switch strings.ToUpper(def) {
	case "WGS84", "CRS:84", "OGC:CRS84", "URN:OGC:DEF:CRS:OGC:1.3:CRS84":
		return true
	case "EPSG:4326":
		// Shapefile coordinates are always x first, whatever the authority
		// axis order says.
		return true
	}

	if strings.HasPrefix(def, "+") {
		params := strings.Fields(strings.ToLower(def))
		hasLonLat, hasDatum := false, false
		for _, p := range params {
			switch p {
			case "+proj=longlat", "+proj=latlong", "+proj=lonlat", "+proj=latlon":
				hasLonLat = true
			case "+datum=wgs84", "+ellps=wgs84":
				hasDatum = true
			}
			if strings.HasPrefix(p, "+pm=") && p != "+pm=greenwich" && p != "+pm=0" {
				return false
			}
			if strings.HasPrefix(p, "+axis=") && p != "+axis=enu" {
				return false
			}
		}
		return hasLonLat && hasDatum
	}

	if wktProjected.MatchString(def) || !wktGeographic.MatchString(def) {
		return false
	}
	if !wktWGS84Datum.MatchString(def) {
		return false
	}
	if m := wktPrimeShift.FindStringSubmatch(def); m != nil {
		if shift, err := strconv.ParseFloat(m[1], 64); err != nil || shift != 0 {
			return false
		}
	}
	// ESRI WKT carries no AXIS and is longitude first; an explicit AXIS
	// listing north first is latitude first.
	if loc := wktAxisLatLon.FindStringIndex(def); loc != nil {
		first := strings.Index(strings.ToUpper(def), "AXIS")
		if first == loc[0] {
			return false
		}
	}
	return true
}
