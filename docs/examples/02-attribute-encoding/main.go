package main

import (
	"context"
	"fmt"
	"log"

	"github.com/beetlebugorg/shp2geojson/pkg/shp2geojson"
)

// Convert a Big5 table written without a .cpg file
func convertBig5(path string) (*shp2geojson.Result, error) {
	opts := shp2geojson.DefaultOptions()
	opts.Encoding = "big5"
	opts.StrictEncoding = true

	return shp2geojson.NewConverter(opts).ConvertLocation(context.Background(), path)
}

func main() {
	result, err := convertBig5("taipei_districts.zip")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Encoding: %s\n", result.Encoding())
	for _, f := range result.Fields() {
		fmt.Printf("  %-10s %c(%d)\n", f.Name, f.Type, f.Length)
	}

	// Property keys are field names decoded with the same charset
	for _, feature := range result.Collection.Features[:min(3, len(result.Collection.Features))] {
		fmt.Println(feature.Properties)
	}
}
