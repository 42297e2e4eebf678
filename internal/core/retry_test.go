package core_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hedgemm/hmm/internal/core"
	"github.com/hedgemm/hmm/internal/domain"
	"github.com/hedgemm/hmm/internal/transfer"

	"github.com/cenkalti/backoff/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackOff(retries uint64) backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, retries)
}

func TestDownloadWithRetry_RetriesOnTransientError(t *testing.T) {
	content := []byte("ok after retries")
	var attempt atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempt.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.Write(content)
	}))
	defer server.Close()

	downloader := core.NewDownloader(nil)
	destPath := filepath.Join(t.TempDir(), "test.txt")

	var retried []error
	result, err := core.DownloadWithRetry(context.Background(), downloader, server.URL, destPath, nil, fastBackOff(5),
		func(err error, _ time.Duration) { retried = append(retried, err) })
	require.NoError(t, err)

	assert.Equal(t, int64(len(content)), result.Size)
	data, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.Equal(t, int32(3), attempt.Load())
	assert.Len(t, retried, 2)
}

func TestDownloadWithRetry_RetriesExhausted(t *testing.T) {
	var attempt atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	downloader := core.NewDownloader(nil)
	destPath := filepath.Join(t.TempDir(), "test.txt")

	_, err := core.DownloadWithRetry(context.Background(), downloader, server.URL, destPath, nil, fastBackOff(2), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.ErrorIs(t, err, domain.ErrRequestFailed)
	assert.Equal(t, int32(3), attempt.Load())
}

func TestDownloadWithRetry_ClientErrorIsPermanent(t *testing.T) {
	var attempt atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	downloader := core.NewDownloader(nil)

	_, err := core.DownloadWithRetry(context.Background(), downloader, server.URL, filepath.Join(t.TempDir(), "f"), nil, fastBackOff(5), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRequestFailed)
	assert.Equal(t, int32(1), attempt.Load())
}

func TestDownloadWithRetry_CancelledIsPermanent(t *testing.T) {
	var attempt atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt.Add(1)
		w.Write([]byte("data"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	downloader := core.NewDownloader(nil)
	_, err := core.DownloadWithRetry(ctx, downloader, server.URL, filepath.Join(t.TempDir(), "f"), nil, fastBackOff(5), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, transfer.ErrCancelled)
	assert.LessOrEqual(t, attempt.Load(), int32(1))
}

func TestDownloadWithRetry_CancelDuringWait(t *testing.T) {
	var attempt atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	downloader := core.NewDownloader(nil)
	_, err := core.DownloadWithRetry(ctx, downloader, server.URL, filepath.Join(t.TempDir(), "f"), nil, core.DefaultRetryBackOff(5),
		func(error, time.Duration) { cancel() })
	require.Error(t, err)
	assert.ErrorIs(t, err, transfer.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), attempt.Load())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"transport error", &domain.RequestFailedError{URL: "u", Err: assert.AnError}, true},
		{"server error", &domain.RequestFailedError{URL: "u", StatusCode: 502, Status: "502 Bad Gateway"}, true},
		{"too many requests", &domain.RequestFailedError{URL: "u", StatusCode: 429}, true},
		{"not found", &domain.RequestFailedError{URL: "u", StatusCode: 404}, false},
		{"io failure", &transfer.IOError{Op: transfer.OpWrite, Err: assert.AnError}, false},
		{"other", assert.AnError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, core.IsRetryable(tt.err))
		})
	}
}

func TestDefaultRetryBackOff_LimitsAttempts(t *testing.T) {
	b := core.DefaultRetryBackOff(3)
	assert.NotEqual(t, backoff.Stop, b.NextBackOff())
	assert.NotEqual(t, backoff.Stop, b.NextBackOff())
	assert.Equal(t, backoff.Stop, b.NextBackOff())

	single := core.DefaultRetryBackOff(0)
	assert.Equal(t, backoff.Stop, single.NextBackOff())
}
