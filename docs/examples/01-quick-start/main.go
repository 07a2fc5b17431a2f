package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/beetlebugorg/shp2geojson/pkg/shp2geojson"
)

func main() {
	// Create converter
	conv := shp2geojson.NewConverter(shp2geojson.DefaultOptions())

	// Convert a zipped shapefile
	result, err := conv.ConvertLocation(context.Background(), "villages.zip")
	if err != nil {
		log.Fatal(err)
	}

	// Print dataset info
	fmt.Fprintf(os.Stderr, "Layer: %s\n", result.Name)
	fmt.Fprintf(os.Stderr, "Shape type: %s\n", result.ShapeType())
	fmt.Fprintf(os.Stderr, "Features: %d\n", result.FeatureCount())
	fmt.Fprintf(os.Stderr, "Transform: %s\n", result.Transform)

	// Write GeoJSON to stdout
	if err := json.NewEncoder(os.Stdout).Encode(result.Collection); err != nil {
		log.Fatal(err)
	}
}
