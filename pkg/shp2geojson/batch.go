package shp2geojson

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
)

// Input is one dataset of a batch. Non-empty fields override the
// converter's options for this dataset only.
type Input struct {
	Location string
	Layer    string
	Encoding string
	CRS      string
}

// BatchOptions controls batch conversion and error handling.
type BatchOptions struct {
	// Workers is the number of concurrent conversions.
	// If 0, defaults to runtime.NumCPU(). 1 converts serially.
	Workers int

	// SkipErrors keeps converting when individual datasets fail. Failed
	// datasets leave a nil result and their errors are collected.
	// When false, the first error stops the batch and is returned alone.
	SkipErrors bool

	// Progress is an optional callback called after each dataset is
	// converted (successfully or not) with the count done so far.
	Progress func(done, total int)

	// ErrorLog is an optional writer receiving one line per failed dataset.
	ErrorLog io.Writer
}

// DefaultBatchOptions returns batch options with one worker per CPU that
// skip failed datasets.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		Workers:    runtime.NumCPU(),
		SkipErrors: true,
	}
}

// BatchError reports the failure of one dataset in a batch.
type BatchError struct {
	Index    int
	Location string
	Err      error
}

func (e *BatchError) Error() string { return fmt.Sprintf("%s: %v", e.Location, e.Err) }

func (e *BatchError) Unwrap() error { return e.Err }

// ConvertAll converts inputs on a bounded worker pool. results[i] belongs
// to inputs[i] and is nil when that dataset failed.
//
// Example:
//
//	conv := shp2geojson.NewConverter(shp2geojson.DefaultOptions())
//	results, errs := shp2geojson.ConvertAll(ctx, conv, []shp2geojson.Input{
//	    {Location: "data/roads.zip"},
//	    {Location: "s3://gis/villages.zip", Encoding: "big5"},
//	}, shp2geojson.BatchOptions{
//	    Workers:    4,
//	    SkipErrors: true,
//	    Progress: func(done, total int) {
//	        fmt.Printf("\rConverting: %d/%d", done, total)
//	    },
//	})
func ConvertAll(ctx context.Context, conv *Converter, inputs []Input, opts BatchOptions) ([]*Result, []error) {
	if len(inputs) == 0 {
		return []*Result{}, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}
	if workers == 1 {
		return convertSerial(ctx, conv, inputs, opts)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type convertResult struct {
		index  int
		result *Result
		err    error
	}

	jobs := make(chan int, len(inputs))
	results := make(chan convertResult, len(inputs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				result, err := conv.convertInput(ctx, inputs[index])
				results <- convertResult{index: index, result: result, err: err}
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]*Result, len(inputs))
	var errs []error
	done := 0

	for r := range results {
		done++
		if opts.Progress != nil {
			opts.Progress(done, len(inputs))
		}

		if r.err != nil {
			err := &BatchError{Index: r.index, Location: inputs[r.index].Location, Err: r.err}
			if opts.ErrorLog != nil {
				fmt.Fprintf(opts.ErrorLog, "Error converting dataset: %v\n", err)
			}
			if !opts.SkipErrors {
				return nil, []error{err}
			}
			errs = append(errs, err)
			continue
		}
		out[r.index] = r.result
	}

	return out, errs
}

func convertSerial(ctx context.Context, conv *Converter, inputs []Input, opts BatchOptions) ([]*Result, []error) {
	out := make([]*Result, len(inputs))
	var errs []error

	for i, in := range inputs {
		result, err := conv.convertInput(ctx, in)
		if opts.Progress != nil {
			opts.Progress(i+1, len(inputs))
		}
		if err != nil {
			err := &BatchError{Index: i, Location: in.Location, Err: err}
			if opts.ErrorLog != nil {
				fmt.Fprintf(opts.ErrorLog, "Error converting dataset: %v\n", err)
			}
			if !opts.SkipErrors {
				return nil, []error{err}
			}
			errs = append(errs, err)
			continue
		}
		out[i] = result
	}

	return out, errs
}

func (c *Converter) convertInput(ctx context.Context, in Input) (*Result, error) {
	opts := c.opts
	if in.Layer != "" {
		opts.Layer = in.Layer
	}
	if in.Encoding != "" {
		opts.Encoding = in.Encoding
	}
	if in.CRS != "" {
		opts.CRS = in.CRS
	}
	return c.convertLocation(ctx, in.Location, opts)
}
