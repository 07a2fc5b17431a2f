package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `
workers: 4
encoding: big5
jobs:
  - input: data/roads.zip
    output: out/roads.geojson
    encoding: utf-8
    layer: roads
  - input: https://example.com/villages.zip
    output: /tmp/villages.geojson
  - input: s3://gis/towns.zip
    crs: EPSG:3826
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Workers != 4 || cfg.Encoding != "big5" {
		t.Errorf("root = %+v", cfg)
	}
	if len(cfg.Jobs) != 3 {
		t.Fatalf("got %d jobs, want 3", len(cfg.Jobs))
	}

	want := []Job{
		{Input: "data/roads.zip", Output: "out/roads.geojson", Encoding: "utf-8", Layer: "roads"},
		{Input: "https://example.com/villages.zip", Output: "/tmp/villages.geojson"},
		{Input: "s3://gis/towns.zip", CRS: "EPSG:3826"},
	}
	for i, w := range want {
		if cfg.Jobs[i] != w {
			t.Errorf("job %d = %+v, want %+v", i, cfg.Jobs[i], w)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		contains string
	}{
		{"no jobs", "workers: 2\n", "no jobs"},
		{"missing input", "jobs:\n  - output: a.geojson\n", "job 1: input is required"},
		{"negative workers", "workers: -1\njobs:\n  - input: a.zip\n", "workers must be >= 0"},
		{
			"duplicate output",
			"jobs:\n  - input: a.zip\n    output: x.geojson\n  - input: b.zip\n    output: x.geojson\n",
			"already written by job 1",
		},
		{"bad yaml", "jobs: [", "yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err, tt.contains)
			}
		})
	}
}

func TestLoadResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got, want := cfg.Jobs[0].Input, filepath.Join(dir, "data/roads.zip"); got != want {
		t.Errorf("input = %s, want %s", got, want)
	}
	if got, want := cfg.Jobs[0].Output, filepath.Join(dir, "out/roads.geojson"); got != want {
		t.Errorf("output = %s, want %s", got, want)
	}
	if cfg.Jobs[1].Input != "https://example.com/villages.zip" {
		t.Errorf("url input rewritten to %s", cfg.Jobs[1].Input)
	}
	if cfg.Jobs[1].Output != "/tmp/villages.geojson" {
		t.Errorf("absolute output rewritten to %s", cfg.Jobs[1].Output)
	}
	if cfg.Jobs[2].Output != "" {
		t.Errorf("empty output rewritten to %s", cfg.Jobs[2].Output)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !os.IsNotExist(err) {
		t.Errorf("error = %v, want not exist", err)
	}
}
