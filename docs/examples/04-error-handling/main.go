package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/beetlebugorg/shp2geojson/pkg/shp2geojson"
)

func safeConvert(path string) (*shp2geojson.Result, error) {
	opts := shp2geojson.DefaultOptions()
	opts.StrictEncoding = true

	result, err := shp2geojson.NewConverter(opts).ConvertLocation(context.Background(), path)
	if err == nil {
		return result, nil
	}

	var mismatch *shp2geojson.EncodingMismatchError
	var unsupported *shp2geojson.UnsupportedShapeError
	var format *shp2geojson.FormatError

	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("shapefile not found: %s", path)
	case errors.As(err, &mismatch):
		log.Printf("Record %d field %q does not decode as %s; try another --encoding", mismatch.Record, mismatch.Field, mismatch.Charset)
	case errors.As(err, &unsupported):
		log.Printf("Shape type %s is not supported", unsupported.Type)
	case errors.As(err, &format):
		log.Printf("Corrupt %s file at offset %d: %s", format.File, format.Offset, format.Reason)
	}
	return nil, err
}

func main() {
	result, err := safeConvert("roads.zip")
	if err != nil {
		log.Printf("Error: %v", err)
		return
	}
	fmt.Printf("Converted %s: %d features\n", result.Name, result.FeatureCount())

	// Try a dataset that does not exist
	if _, err := safeConvert("missing/roads.shp"); err != nil {
		log.Printf("Expected error: %v", err)
	}
}
