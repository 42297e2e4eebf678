package core

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hedgemm/hmm/internal/domain"
	"github.com/hedgemm/hmm/internal/logger"
	"github.com/hedgemm/hmm/internal/source"
	"github.com/hedgemm/hmm/internal/storage/cache"
	"github.com/hedgemm/hmm/internal/storage/config"
	"github.com/hedgemm/hmm/internal/storage/db"
	"github.com/hedgemm/hmm/internal/transfer"

	"github.com/rcrowley/go-metrics"
)

// ServiceConfig holds configuration for the core service
type ServiceConfig struct {
	ConfigDir  string       // Directory for configuration files
	DataDir    string       // Directory for the download ledger
	CacheDir   string       // Overrides cache_path from the config file when set
	HTTPClient *http.Client // nil uses http.DefaultClient
}

// DownloadOptions overrides configured download settings for one call.
// Zero values keep the configured setting.
type DownloadOptions struct {
	NoCache     bool
	MaxAttempts int
	RateLimit   int64
	BufferSize  int
	OnRetry     func(err error, wait time.Duration)
}

// Service is the main orchestrator for download operations
type Service struct {
	config     *config.Config
	db         *db.DB
	cache      *cache.Cache
	registry   *source.Registry
	metrics    metrics.Registry
	httpClient *http.Client
	log        logger.Logger

	configDir string
	dataDir   string
}

// NewService creates a new core service instance
func NewService(cfg ServiceConfig) (*Service, error) {
	appConfig, err := config.Load(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	database, err := db.New(filepath.Join(cfg.DataDir, "hmm.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = appConfig.CachePath
	}
	if cacheDir == "" {
		cacheDir = filepath.Join(cfg.DataDir, "cache")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Service{
		config:     appConfig,
		db:         database,
		cache:      cache.New(cacheDir),
		registry:   source.NewRegistry(),
		metrics:    metrics.NewRegistry(),
		httpClient: httpClient,
		log:        logger.New("service"),
		configDir:  cfg.ConfigDir,
		dataDir:    cfg.DataDir,
	}, nil
}

// Close releases resources held by the service
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RegisterSource adds a mod source to the registry
func (s *Service) RegisterSource(src source.Resolver) {
	s.registry.Register(src)
}

// GetSource retrieves a source by ID
func (s *Service) GetSource(id string) (source.Resolver, error) {
	return s.registry.Get(id)
}

// ListSources returns all registered sources
func (s *Service) ListSources() []source.Resolver {
	return s.registry.List()
}

// Resolve turns a download target into a remote file. Targets are either
// an http(s) URL or a "source:ref" mod reference.
func (s *Service) Resolve(ctx context.Context, target string) (*domain.RemoteFile, error) {
	if isHTTPURL(target) {
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidReference, err)
		}
		return &domain.RemoteFile{
			SourceID: domain.SourceDirect,
			Ref:      target,
			URL:      target,
			FileName: fileNameFromURL(u),
		}, nil
	}
	return s.registry.Lookup(ctx, target)
}

// NewDownloader builds a Downloader from the configured settings and opts
func (s *Service) NewDownloader(opts DownloadOptions) *Downloader {
	dl := s.config.Download

	bufferSize := dl.BufferSize
	if opts.BufferSize > 0 {
		bufferSize = opts.BufferSize
	}
	rate := dl.RateLimit
	if opts.RateLimit > 0 {
		rate = opts.RateLimit
	}

	return NewDownloader(s.httpClient,
		WithUserAgent(dl.UserAgent),
		WithBufferSize(bufferSize),
		WithRateLimit(rate),
		WithInactivityTimeout(dl.InactivityTimeout),
		WithMetrics(s.metrics),
		WithLogger(s.log),
	)
}

// Download resolves target and saves it to dest.
//
// dest may be a file path, an existing directory, or empty for the current
// directory. A file already in the cache is copied instead of fetched.
// Failed attempts are retried with back-off while the error is retryable.
// When the source publishes an MD5 checksum the result is verified against
// it. Every outcome is recorded in the download history. On failure a
// destination this call created or truncated is removed; one it never
// opened is left alone.
func (s *Service) Download(ctx context.Context, target, dest string, progressFn ProgressFunc, opts DownloadOptions) (*DownloadResult, error) {
	started := time.Now()

	file, err := s.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}

	destPath, err := resolveDest(dest, file.FileName)
	if err != nil {
		return nil, err
	}

	result, err := s.fetch(ctx, file, destPath, progressFn, opts)
	if err == nil && file.Checksum != "" && !strings.EqualFold(file.Checksum, result.Checksum) {
		err = &OutputError{
			Path: destPath,
			Err:  fmt.Errorf("%w: %s expected %s, got %s", domain.ErrChecksumMismatch, file.FileName, file.Checksum, result.Checksum),
		}
		s.cache.Delete(URLKey(file.URL))
	}

	rec := &domain.DownloadRecord{
		URL:        file.URL,
		Path:       destPath,
		Status:     domain.DownloadCompleted,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err != nil {
		rec.Status = domain.DownloadFailed
		if errors.Is(err, transfer.ErrCancelled) {
			rec.Status = domain.DownloadCancelled
		}
		rec.Error = err.Error()
		// only output this call created or truncated is removed
		var outErr *OutputError
		if errors.As(err, &outErr) {
			if rmErr := os.Remove(outErr.Path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				s.log.Warningf("removing partial download %s: %s", outErr.Path, rmErr)
			}
		}
	} else {
		rec.Size = result.Size
		rec.Checksum = result.Checksum
	}
	if recErr := s.db.RecordDownload(rec); recErr != nil {
		s.log.Warningf("recording download history: %s", recErr)
	}

	if err != nil {
		return nil, err
	}
	result.Duration = rec.Duration()
	return result, nil
}

func (s *Service) fetch(ctx context.Context, file *domain.RemoteFile, destPath string, progressFn ProgressFunc, opts DownloadOptions) (*DownloadResult, error) {
	key := URLKey(file.URL)
	cached := s.cache.PathFor(key, file.FileName)

	if !opts.NoCache && s.cache.Exists(key, file.FileName) {
		s.log.Debugf("serving %s from cache %s", file.URL, cached)
		size, sum, err := copyFile(ctx, cached, destPath, progressFn)
		if err != nil {
			return nil, fmt.Errorf("copying from cache: %w", err)
		}
		return &DownloadResult{Path: destPath, Size: size, Checksum: sum, Cached: true}, nil
	}

	attempts := s.config.Download.MaxAttempts
	if opts.MaxAttempts > 0 {
		attempts = opts.MaxAttempts
	}

	onRetry := func(err error, wait time.Duration) {
		s.log.Infof("retrying %s in %s: %s", file.URL, wait.Round(time.Millisecond), err)
		if opts.OnRetry != nil {
			opts.OnRetry(err, wait)
		}
	}

	result, err := DownloadWithRetry(ctx, s.NewDownloader(opts), file.URL, destPath, progressFn, DefaultRetryBackOff(attempts), onRetry)
	if err != nil {
		return nil, err
	}

	if !opts.NoCache {
		if _, _, err := copyFile(ctx, destPath, cached, nil); err != nil {
			s.log.Warningf("caching %s: %s", file.URL, err)
			s.cache.Delete(key)
		}
	}
	return result, nil
}

// History returns recorded downloads, newest first. With unique set only the
// latest entry per URL is kept.
func (s *Service) History(limit int, unique bool) ([]domain.DownloadRecord, error) {
	if !unique {
		return s.db.ListDownloads(limit)
	}

	records, err := s.db.ListDownloads(0)
	if err != nil {
		return nil, err
	}
	records = DistinctBy(records, func(r domain.DownloadRecord) string { return r.URL })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// LastDownload resolves target and returns the newest history entry for its
// URL, or nil if it was never downloaded
func (s *Service) LastDownload(ctx context.Context, target string) (*domain.DownloadRecord, error) {
	file, err := s.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	return s.db.LastDownload(file.URL)
}

// ClearHistory deletes all history entries
func (s *Service) ClearHistory() (int64, error) {
	return s.db.DeleteDownloads()
}

// CheckForUpdate compares currentVersion with the configured release manifest
func (s *Service) CheckForUpdate(ctx context.Context, currentVersion string) (*domain.Release, bool, error) {
	return CheckForUpdate(ctx, s.httpClient, s.config.UpdateManifest, currentVersion)
}

// AuthSource returns the registered source with sourceID if it takes an API key
func (s *Service) AuthSource(sourceID string) (source.KeyedResolver, error) {
	src, err := s.registry.Get(sourceID)
	if err != nil {
		return nil, err
	}
	keyed, ok := src.(source.KeyedResolver)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAuthUnsupported, src.ID())
	}
	return keyed, nil
}

// AuthSources returns the registered sources that take an API key, sorted by ID
func (s *Service) AuthSources() []source.KeyedResolver {
	var keyed []source.KeyedResolver
	for _, src := range s.registry.List() {
		if k, ok := src.(source.KeyedResolver); ok {
			keyed = append(keyed, k)
		}
	}
	return keyed
}

// SaveSourceToken stores an API key for a registered source that takes one
func (s *Service) SaveSourceToken(sourceID, apiKey string) error {
	src, err := s.AuthSource(sourceID)
	if err != nil {
		return err
	}
	return s.db.SaveToken(src.ID(), strings.TrimSpace(apiKey))
}

// SourceTokens returns the stored API keys by source ID
func (s *Service) SourceTokens() (map[string]db.StoredToken, error) {
	tokens, err := s.db.ListTokens()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]db.StoredToken, len(tokens))
	for _, t := range tokens {
		byID[t.SourceID] = t
	}
	return byID, nil
}

// GetSourceToken retrieves the stored API key for a source
func (s *Service) GetSourceToken(sourceID string) (*db.StoredToken, error) {
	return s.db.GetToken(sourceID)
}

// DeleteSourceToken removes the stored API key for a source and reports
// whether one was stored
func (s *Service) DeleteSourceToken(sourceID string) (bool, error) {
	src, err := s.AuthSource(sourceID)
	if err != nil {
		return false, err
	}
	return s.db.DeleteToken(src.ID())
}

// SourceAPIKey returns the API key for a source. The environment variable
// <SOURCE>_API_KEY takes precedence over a stored token.
func (s *Service) SourceAPIKey(sourceID string) string {
	if key := os.Getenv(strings.ToUpper(sourceID) + "_API_KEY"); key != "" {
		return key
	}
	token, err := s.db.GetToken(sourceID)
	if err != nil {
		s.log.Warningf("reading token for %s: %s", sourceID, err)
		return ""
	}
	if token == nil {
		return ""
	}
	return token.APIKey
}

// SaveConfig writes the current configuration to the config directory
func (s *Service) SaveConfig() error {
	return s.config.Save(s.configDir)
}

// Cache returns the download cache
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// Config returns the loaded configuration
func (s *Service) Config() *config.Config {
	return s.config
}

// ConfigDir returns the configuration directory
func (s *Service) ConfigDir() string {
	return s.configDir
}

// Metrics returns the registry download counters are recorded in
func (s *Service) Metrics() metrics.Registry {
	return s.metrics
}

// HTTPClient returns the client used for all requests
func (s *Service) HTTPClient() *http.Client {
	return s.httpClient
}

func isHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func fileNameFromURL(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "download"
	}
	return name
}

// resolveDest picks the output file for a download
func resolveDest(dest, fileName string) (string, error) {
	if fileName == "" {
		fileName = "download"
	}
	if dest == "" {
		return fileName, nil
	}
	if strings.HasSuffix(dest, string(os.PathSeparator)) {
		return filepath.Join(dest, fileName), nil
	}
	info, err := os.Stat(dest)
	if err == nil && info.IsDir() {
		return filepath.Join(dest, fileName), nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("checking destination: %w", err)
	}
	return dest, nil
}

// copyFile streams src into dst through the transfer engine and returns the
// byte count and MD5 of what was written. Failures after dst was opened are
// returned as *OutputError.
func copyFile(ctx context.Context, src, dst string, progressFn ProgressFunc) (int64, string, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, "", err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, "", err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, "", fmt.Errorf("creating directory: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, "", err
	}
	defer out.Close()

	hasher := md5.New()
	n, err := transfer.Copy(ctx, io.MultiWriter(out, hasher), in,
		transfer.WithTotalSize(info.Size()),
		transfer.WithProgress(progressFn),
	)
	if err != nil {
		return n, "", &OutputError{Path: dst, Err: err}
	}
	if err := out.Close(); err != nil {
		return n, "", &OutputError{Path: dst, Err: err}
	}
	return n, hex.EncodeToString(hasher.Sum(nil)), nil
}
