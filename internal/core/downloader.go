package core

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hedgemm/hmm/internal/domain"
	"github.com/hedgemm/hmm/internal/logger"
	"github.com/hedgemm/hmm/internal/transfer"

	"github.com/juju/ratelimit"
	"github.com/rcrowley/go-metrics"
)

// ProgressFunc is called after every chunk written during a download
type ProgressFunc = transfer.ProgressFunc

// DownloadResult contains the outcome of a download
type DownloadResult struct {
	Path     string        // Final file path
	Size     int64         // Bytes downloaded
	Checksum string        // MD5 hash of downloaded file
	Duration time.Duration // Wall time of the transfer
	Cached   bool          // True if the file was served from the cache
}

// OutputError wraps a failure that happened after the destination file was
// created or truncated. Path may hold partial output.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string { return e.Err.Error() }

func (e *OutputError) Unwrap() error { return e.Err }

// Downloader handles HTTP file downloads with progress tracking
type Downloader struct {
	httpClient        *http.Client
	userAgent         string
	headers           map[string]string
	bufferSize        int
	bucket            *ratelimit.Bucket
	inactivityTimeout time.Duration
	log               logger.Logger

	bytesMeter metrics.Meter
	completed  metrics.Counter
	failed     metrics.Counter
}

// DownloaderOption configures a Downloader
type DownloaderOption func(*Downloader)

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) DownloaderOption {
	return func(d *Downloader) { d.userAgent = ua }
}

// WithHeader adds a header sent with every request
func WithHeader(key, value string) DownloaderOption {
	return func(d *Downloader) { d.headers[key] = value }
}

// WithBufferSize sets the transfer chunk size
func WithBufferSize(n int) DownloaderOption {
	return func(d *Downloader) {
		if n > 0 {
			d.bufferSize = n
		}
	}
}

// WithRateLimit caps the download speed in bytes per second. Zero disables the limit.
func WithRateLimit(bytesPerSecond int64) DownloaderOption {
	return func(d *Downloader) {
		if bytesPerSecond > 0 {
			// a tenth of a second worth of burst
			d.bucket = ratelimit.NewBucketWithRate(float64(bytesPerSecond), max(bytesPerSecond/10, 1))
		} else {
			d.bucket = nil
		}
	}
}

// WithInactivityTimeout aborts a download when no data arrives for the given duration
func WithInactivityTimeout(timeout time.Duration) DownloaderOption {
	return func(d *Downloader) { d.inactivityTimeout = timeout }
}

// WithLogger replaces the default logger
func WithLogger(l logger.Logger) DownloaderOption {
	return func(d *Downloader) { d.log = l }
}

// WithMetrics registers download meters in r
func WithMetrics(r metrics.Registry) DownloaderOption {
	return func(d *Downloader) { d.registerMetrics(r) }
}

// NewDownloader creates a new Downloader with the given HTTP client
// If httpClient is nil, http.DefaultClient is used
func NewDownloader(httpClient *http.Client, opts ...DownloaderOption) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	d := &Downloader{
		httpClient: httpClient,
		headers:    make(map[string]string),
		bufferSize: transfer.DefaultBufferSize,
		log:        logger.New("downloader"),
	}
	d.registerMetrics(metrics.NewRegistry())
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Downloader) registerMetrics(r metrics.Registry) {
	d.bytesMeter = metrics.GetOrRegisterMeter("download.bytes", r)
	d.completed = metrics.GetOrRegisterCounter("download.completed", r)
	d.failed = metrics.GetOrRegisterCounter("download.failed", r)
}

// Download fetches a file from the URL and saves it to destPath.
//
// A non-success status returns a *domain.RequestFailedError and destPath is
// not touched. Otherwise destPath is created or truncated and the body is
// streamed into it. Failures from that point on are returned as *OutputError
// and the partial file is left in place for the caller to remove or keep.
func (d *Downloader) Download(ctx context.Context, url, destPath string, progressFn ProgressFunc) (*DownloadResult, error) {
	result, err := d.download(ctx, url, destPath, progressFn)
	if err != nil {
		d.failed.Inc(1)
		d.log.Debugf("download of %s failed: %s", url, err)
		return nil, err
	}
	d.completed.Inc(1)
	d.log.Debugf("downloaded %s to %s (%d bytes in %s)", url, destPath, result.Size, result.Duration)
	return result, nil
}

func (d *Downloader) download(ctx context.Context, url, destPath string, progressFn ProgressFunc) (*DownloadResult, error) {
	start := time.Now()

	ctx, wd := newWatchdog(ctx, d.inactivityTimeout)
	defer wd.Stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w: %w", transfer.ErrInvalidArgument, err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	for k, v := range d.headers {
		req.Header.Set(k, v)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil && !wd.Fired() {
			return nil, fmt.Errorf("executing request: %w: %w", transfer.ErrCancelled, context.Cause(ctx))
		}
		return nil, &domain.RequestFailedError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.RequestFailedError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}
	file, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	var body io.Reader = resp.Body
	if d.bucket != nil {
		body = ratelimit.Reader(body, d.bucket)
	}

	hasher := md5.New()
	var marked int64
	report := func(p transfer.Progress) {
		wd.Kick()
		d.bytesMeter.Mark(p.Transferred - marked)
		marked = p.Transferred
		if progressFn != nil {
			progressFn(p)
		}
	}

	written, err := transfer.Copy(ctx, io.MultiWriter(file, hasher), body,
		transfer.WithTotalSize(resp.ContentLength),
		transfer.WithBufferSize(d.bufferSize),
		transfer.WithProgress(report),
	)
	if err != nil {
		switch {
		case wd.Fired():
			err = &transfer.IOError{
				Op:          transfer.OpRead,
				Transferred: written,
				Err:         fmt.Errorf("no data received for %s: %w", d.inactivityTimeout, os.ErrDeadlineExceeded),
			}
		case errors.Is(err, transfer.ErrIO) && ctx.Err() != nil:
			// the body read saw the cancelled request context before the engine did
			err = fmt.Errorf("%w after %d bytes: %w", transfer.ErrCancelled, written, context.Cause(ctx))
		}
		return nil, &OutputError{Path: destPath, Err: fmt.Errorf("downloading %s: %w", url, err)}
	}

	if err := file.Close(); err != nil {
		return nil, &OutputError{
			Path: destPath,
			Err:  fmt.Errorf("closing file: %w", &transfer.IOError{Op: transfer.OpWrite, Transferred: written, Err: err}),
		}
	}

	return &DownloadResult{
		Path:     destPath,
		Size:     written,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
		Duration: time.Since(start),
	}, nil
}
