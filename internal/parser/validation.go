package parser

import (
	"fmt"

	"github.com/paulmach/orb"
)

// ValidateCoordinate validates a single reprojected coordinate pair.
// WGS84 longitude must be within ±180 and latitude within ±90.
func ValidateCoordinate(lat, lon float64) error {
	if lat < -90.0 || lat > 90.0 {
		return &ErrInvalidCoordinate{Lat: lat, Lon: lon}
	}
	if lon < -180.0 || lon > 180.0 {
		return &ErrInvalidCoordinate{Lat: lat, Lon: lon}
	}
	return nil
}

// ValidateGeometry checks every vertex of an assembled geometry.
// Empty geometries (null shapes, zero-point parts) are valid.
func ValidateGeometry(geometry orb.Geometry) error {
	if geometry == nil {
		return &ErrInvalidGeometry{Reason: "geometry is nil"}
	}

	i := 0
	var check func(g orb.Geometry) error
	check = func(g orb.Geometry) error {
		switch g := g.(type) {
		case orb.Point:
			lon, lat := g[0], g[1]
			if err := ValidateCoordinate(lat, lon); err != nil {
				return &ErrInvalidGeometry{
					Type:   geometry.GeoJSONType(),
					Reason: fmt.Sprintf("coordinate %d invalid: %v", i, err),
				}
			}
			i++
		case orb.MultiPoint:
			for _, p := range g {
				if err := check(p); err != nil {
					return err
				}
			}
		case orb.LineString:
			return check(orb.MultiPoint(g))
		case orb.Ring:
			return check(orb.MultiPoint(g))
		case orb.MultiLineString:
			for _, ls := range g {
				if err := check(ls); err != nil {
					return err
				}
			}
		case orb.Polygon:
			for _, r := range g {
				if err := check(r); err != nil {
					return err
				}
			}
		case orb.Collection:
			for _, c := range g {
				if err := check(c); err != nil {
					return err
				}
			}
		default:
			return &ErrInvalidGeometry{Type: g.GeoJSONType(), Reason: "unsupported geometry"}
		}
		return nil
	}

	return check(geometry)
}
