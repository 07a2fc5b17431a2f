package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/beetlebugorg/shp2geojson/internal/archive"
	"github.com/beetlebugorg/shp2geojson/internal/config"
	"github.com/beetlebugorg/shp2geojson/internal/logger"
	"github.com/beetlebugorg/shp2geojson/internal/source"
	"github.com/beetlebugorg/shp2geojson/pkg/shp2geojson"

	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Input        string `short:"i" long:"in"            description:"Shapefile location: .zip or .shp path, http(s):// or s3:// URL"`
	Output       string `short:"o" long:"out"           description:"Output file path. Writes to stdout if empty"`
	Format       string `short:"f" long:"format"        description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Pretty       bool   `long:"pretty"                  description:"Indent JSON output"`
	Encoding     string `short:"e" long:"encoding"      env:"SHP_ENCODING"  description:"Attribute encoding (big5, windows-1252, ...). Default: .cpg, .dbf header, then UTF-8"`
	CRS          string `long:"crs"                     description:"Source coordinate system, overrides the .prj (PROJ string, EPSG:code or WKT)"`
	Layer        string `short:"l" long:"layer"         description:"Shapefile to convert inside a multi-layer archive"`
	ListLayers   bool   `long:"list-layers"             description:"List the shapefiles inside the archive and exit"`
	Strict       bool   `long:"strict"                  description:"Fail when attribute text does not match the declared field widths"`
	SplitLines   bool   `long:"split-lines"             description:"Emit multi-part polylines as MultiLineString"`
	NoValidate   bool   `long:"no-validate"             description:"Skip WGS84 range checks on output coordinates"`
	DeletedField string `long:"deleted-field"           description:"Add a bool property of this name carrying the record deletion flag"`

	ConfigFile string `short:"c" long:"config"   env:"CONFIG_FILE"  description:"YAML job file for batch conversion"`
	Workers    int    `short:"p" long:"workers"  env:"WORKERS"      description:"Concurrent conversions in batch mode (0 = one per CPU)"`
	CacheMB    int64  `long:"cache-mb"           env:"CACHE_MB"     description:"Memory for archives shared by several jobs" default:"512"`

	S3Region    string `long:"s3-region"     env:"AWS_REGION"    description:"AWS region for s3:// inputs"`
	S3Endpoint  string `long:"s3-endpoint"   env:"S3_ENDPOINT"   description:"Custom S3 endpoint (MinIO, LocalStack)"`
	S3PathStyle bool   `long:"s3-path-style" env:"S3_PATH_STYLE" description:"Use path-style S3 addressing"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	runLog := log.With().Str("run_id", runID).Logger()

	if err := run(ctx, opts, runLog); err != nil {
		runLog.Error().Err(err).Msg("Conversion failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts Options, logger zerolog.Logger) error {
	if opts.ConfigFile == "" && opts.Input == "" {
		return errors.New("either --in or --config is required")
	}

	fetcher := source.NewFetcher()
	fetcher.S3 = source.S3Config{
		Region:       opts.S3Region,
		Endpoint:     opts.S3Endpoint,
		UsePathStyle: opts.S3PathStyle,
	}

	convOpts := shp2geojson.DefaultOptions()
	convOpts.Encoding = opts.Encoding
	convOpts.CRS = opts.CRS
	convOpts.Layer = opts.Layer
	convOpts.StrictEncoding = opts.Strict
	convOpts.SplitLineParts = opts.SplitLines
	convOpts.ValidateCoordinates = !opts.NoValidate
	convOpts.DeletedField = opts.DeletedField
	convOpts.Fetcher = fetcher

	if opts.ListLayers {
		return listLayers(ctx, fetcher, opts.Input)
	}

	if opts.ConfigFile != "" {
		return runBatch(ctx, opts, convOpts, logger)
	}

	start := time.Now()
	result, err := shp2geojson.NewConverter(convOpts).ConvertLocation(ctx, opts.Input)
	if err != nil {
		return err
	}
	if err := write(opts.Output, result, opts.Format, opts.Pretty); err != nil {
		return err
	}

	logger.Info().
		Str("dataset", result.Name).
		Str("encoding", result.Encoding()).
		Str("transform", result.Transform).
		Int("features", result.FeatureCount()).
		Dur("duration", time.Since(start)).
		Msg("Converted shapefile")
	return nil
}

func runBatch(ctx context.Context, opts Options, convOpts shp2geojson.Options, logger zerolog.Logger) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.Strict || cfg.Strict {
		convOpts.StrictEncoding = true
	}
	if convOpts.Encoding == "" {
		convOpts.Encoding = cfg.Encoding
	}
	convOpts.CacheBytes = opts.CacheMB << 20
	conv := shp2geojson.NewConverter(convOpts)

	workers := cfg.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	inputs := make([]shp2geojson.Input, len(cfg.Jobs))
	for i, job := range cfg.Jobs {
		inputs[i] = shp2geojson.Input{
			Location: job.Input,
			Layer:    job.Layer,
			Encoding: job.Encoding,
			CRS:      job.CRS,
		}
	}

	logger.Info().
		Int("jobs", len(inputs)).
		Int("workers", workers).
		Str("config", opts.ConfigFile).
		Msg("Starting batch")

	start := time.Now()
	results, errs := shp2geojson.ConvertAll(ctx, conv, inputs, shp2geojson.BatchOptions{
		Workers:    workers,
		SkipErrors: cfg.SkipErrors,
		Progress: func(done, total int) {
			logger.Debug().Int("done", done).Int("total", total).Msg("Batch progress")
		},
	})

	written := 0
	for i, result := range results {
		if result == nil {
			continue
		}
		out := cfg.Jobs[i].Output
		if out == "" {
			out = defaultOutput(result.Name, opts.Format)
		}
		if err := write(out, result, opts.Format, opts.Pretty); err != nil {
			errs = append(errs, err)
			continue
		}
		written++
		logger.Info().
			Str("dataset", result.Name).
			Str("output", out).
			Str("encoding", result.Encoding()).
			Int("features", result.FeatureCount()).
			Msg("Converted shapefile")
	}

	for _, err := range errs {
		logger.Error().Err(err).Msg("Job failed")
	}

	event := logger.Info().
		Int("written", written).
		Int("failed", len(errs)).
		Dur("duration", time.Since(start))
	if cache := conv.Cache(); cache != nil {
		event = event.Float64("cache_hit_rate", cache.Stats().HitRate())
	}
	event.Msg("Batch finished")

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d jobs failed", len(errs), len(inputs))
	}
	return nil
}

func listLayers(ctx context.Context, fetcher *source.Fetcher, location string) error {
	if location == "" {
		return errors.New("--list-layers needs --in")
	}
	data, err := fetcher.Fetch(ctx, location)
	if err != nil {
		return err
	}
	layers, err := archive.Layers(data)
	if err != nil {
		return fmt.Errorf("%s: %w", location, err)
	}
	for _, name := range layers {
		fmt.Println(name)
	}
	return nil
}

func defaultOutput(name, format string) string {
	ext := ".geojson"
	if format == "yaml" {
		ext = ".yaml"
	}
	return filepath.Clean(strings.TrimSpace(name)) + ext
}
