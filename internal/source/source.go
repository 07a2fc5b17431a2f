// Package source fetches the raw bytes of a dataset from a local path, an
// HTTP(S) URL or an S3 object.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MaxSize bounds the number of bytes read from any location.
const MaxSize = 1 << 31

// ErrTooLarge is returned when a location holds more than MaxSize bytes.
var ErrTooLarge = errors.New("dataset exceeds size limit")

// StatusError reports a non-200 HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// S3Config holds settings for S3 access. Zero values use the SDK defaults.
type S3Config struct {
	// Region is the AWS region of the bucket.
	Region string
	// Endpoint is an optional custom endpoint (MinIO, LocalStack).
	Endpoint string
	// UsePathStyle enables path-style addressing (required for MinIO).
	UsePathStyle bool
}

// Fetcher reads datasets from the locations it understands. It is safe for
// concurrent use; the S3 client is built on first use and shared.
type Fetcher struct {
	HTTP *http.Client
	S3   S3Config

	mu       sync.Mutex
	s3Client *s3.Client
}

// NewFetcher returns a Fetcher with a 60 second HTTP timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTP: &http.Client{Timeout: 60 * time.Second},
	}
}

// Fetch reads the whole content of location. Locations starting with
// http:// or https:// are downloaded, s3://bucket/key is read from S3, and
// anything else is a local path.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	switch {
	case hasScheme(location, "http"), hasScheme(location, "https"):
		return f.fetchHTTP(ctx, location)
	case hasScheme(location, "s3"):
		return f.fetchS3(ctx, location)
	default:
		return readFile(location)
	}
}

func hasScheme(location, scheme string) bool {
	return len(location) > len(scheme)+3 && strings.EqualFold(location[:len(scheme)+3], scheme+"://")
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxSize {
		return nil, fmt.Errorf("%s: %w", path, ErrTooLarge)
	}
	return os.ReadFile(path)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	client := f.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: location, StatusCode: resp.StatusCode}
	}
	return readLimited(resp.Body, location)
}

// ParseS3 splits an s3://bucket/key location.
func ParseS3(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("parse %s: %w", location, err)
	}
	if !strings.EqualFold(u.Scheme, "s3") {
		return "", "", fmt.Errorf("%s: not an s3 location", location)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("%s: expected s3://bucket/key", location)
	}
	return u.Host, key, nil
}

func (f *Fetcher) fetchS3(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := ParseS3(location)
	if err != nil {
		return nil, err
	}

	client, err := f.s3(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	if out.ContentLength != nil && *out.ContentLength > MaxSize {
		return nil, fmt.Errorf("%s: %w", location, ErrTooLarge)
	}
	return readLimited(out.Body, location)
}

func (f *Fetcher) s3(ctx context.Context) (*s3.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.s3Client != nil {
		return f.s3Client, nil
	}

	var opts []func(*config.LoadOptions) error
	if f.S3.Region != "" {
		opts = append(opts, config.WithRegion(f.S3.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if f.S3.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(f.S3.Endpoint)
		})
	}
	if f.S3.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	f.s3Client = s3.NewFromConfig(awsCfg, s3Opts...)
	return f.s3Client, nil
}

func readLimited(r io.Reader, location string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("%s: %w", location, ErrTooLarge)
	}
	return data, nil
}
