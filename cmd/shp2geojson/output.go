package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/beetlebugorg/shp2geojson/pkg/shp2geojson"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"
)

// encode renders fc as JSON or YAML. YAML goes through generic JSON values
// so keys and nesting match the GeoJSON document.
func encode(fc *geojson.FeatureCollection, format string, pretty bool) ([]byte, error) {
	var data []byte
	var err error
	if pretty || format == "yaml" {
		data, err = json.MarshalIndent(fc, "", "  ")
	} else {
		data, err = json.Marshal(fc)
	}
	if err != nil {
		return nil, fmt.Errorf("marshal geojson: %w", err)
	}
	if format != "yaml" {
		return append(data, '\n'), nil
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// write encodes result to path, or to stdout when path is empty.
func write(path string, result *shp2geojson.Result, format string, pretty bool) error {
	data, err := encode(result.Collection, format, pretty)
	if err != nil {
		return err
	}

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
