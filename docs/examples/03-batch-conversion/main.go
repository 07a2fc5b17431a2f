package main

import (
	"context"
	"fmt"
	"os"

	"github.com/beetlebugorg/shp2geojson/pkg/shp2geojson"
)

func main() {
	opts := shp2geojson.DefaultOptions()
	opts.CacheBytes = 256 << 20 // both layers come from one download

	conv := shp2geojson.NewConverter(opts)

	inputs := []shp2geojson.Input{
		{Location: "https://example.com/data/taiwan.zip", Layer: "roads"},
		{Location: "https://example.com/data/taiwan.zip", Layer: "villages", Encoding: "big5"},
		{Location: "s3://gis-data/kinmen/coastline.zip", CRS: "EPSG:3825"},
	}

	results, errs := shp2geojson.ConvertAll(context.Background(), conv, inputs, shp2geojson.BatchOptions{
		Workers:    4,
		SkipErrors: true,
		Progress: func(done, total int) {
			fmt.Printf("\rConverting: %d/%d (%.0f%%)", done, total, float64(done)/float64(total)*100)
		},
		ErrorLog: os.Stderr,
	})
	fmt.Println()

	for i, r := range results {
		if r == nil {
			continue
		}
		fmt.Printf("%s: %d features\n", inputs[i].Location, r.FeatureCount())
	}
	if len(errs) > 0 {
		fmt.Printf("Skipped %d datasets due to errors\n", len(errs))
	}

	stats := conv.Cache().Stats()
	fmt.Printf("Cache: %d archives, hit rate %.0f%%\n", stats.Entries, stats.HitRate()*100)
}
