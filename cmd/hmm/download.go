package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hedgemm/hmm/internal/core"
	"github.com/hedgemm/hmm/internal/transfer"
	"github.com/hedgemm/hmm/internal/tui"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	downloadRetries    int
	downloadRateLimit  string
	downloadBufferSize string
	downloadPlain      bool
	downloadNoCache    bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <url|source:ref> [dest]",
	Short: "Download a mod file",
	Long: `Download a file from a direct URL or a mod source reference.

References name a source and a source-specific ID:
  gamebanana:<fileID>
  nexusmods:<game>/<modID>/<fileID>
  curseforge:<modID>/<fileID>

dest may be a file path or a directory. It defaults to the current directory
using the file name published by the source.

Examples:
  hmm download https://example.com/mods/cool-mod.zip
  hmm download gamebanana:1234 ~/Downloads/
  hmm download nexusmods:skyrimspecialedition/266/1000 --rate-limit 2MB`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().IntVar(&downloadRetries, "retries", 0, "maximum download attempts (default: download.max_attempts)")
	downloadCmd.Flags().StringVar(&downloadRateLimit, "rate-limit", "", "maximum speed, e.g. 500KB or 2MiB (default: unlimited)")
	downloadCmd.Flags().StringVar(&downloadBufferSize, "buffer-size", "", "transfer chunk size, e.g. 64KiB (default: download.buffer_size)")
	downloadCmd.Flags().BoolVar(&downloadPlain, "plain", false, "print progress lines instead of the interactive display")
	downloadCmd.Flags().BoolVar(&downloadNoCache, "no-cache", false, "always fetch from the network and do not store in the cache")

	rootCmd.AddCommand(downloadCmd)
}

// downloadOutput is the JSON shape of a finished download
type downloadOutput struct {
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	Checksum   string `json:"checksum"`
	Cached     bool   `json:"cached"`
	DurationMS int64  `json:"duration_ms"`
}

func runDownload(cmd *cobra.Command, args []string) error {
	target := args[0]
	var dest string
	if len(args) > 1 {
		dest = args[1]
	}

	opts, err := downloadOptions()
	if err != nil {
		return err
	}

	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()

	var result *core.DownloadResult
	if useInteractive(out) {
		result, err = tui.RunDownload(ctx, target,
			func(ctx context.Context, progressFn core.ProgressFunc, onRetry func(error, time.Duration)) (*core.DownloadResult, error) {
				opts.OnRetry = onRetry
				return service.Download(ctx, target, dest, progressFn, opts)
			})
	} else {
		var progressFn core.ProgressFunc
		if !jsonOutput {
			progressFn = plainProgress(cmd.ErrOrStderr())
			opts.OnRetry = func(err error, wait time.Duration) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %v (retrying in %s)\n", colorYellow("warning:"), err, wait.Round(time.Millisecond))
			}
		}
		result, err = service.Download(ctx, target, dest, progressFn, opts)
	}
	if err != nil {
		if errors.Is(err, transfer.ErrCancelled) {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(downloadOutput{
			Path:       result.Path,
			Size:       result.Size,
			Checksum:   result.Checksum,
			Cached:     result.Cached,
			DurationMS: result.Duration.Milliseconds(),
		})
	}

	from := ""
	if result.Cached {
		from = " from cache"
	}
	fmt.Fprintf(out, "%s %s (%s%s, md5 %s)\n", colorGreen("Saved"), result.Path, humanize.Bytes(uint64(result.Size)), from, result.Checksum)
	return nil
}

// downloadOptions builds per-call overrides from the command flags
func downloadOptions() (core.DownloadOptions, error) {
	opts := core.DownloadOptions{
		NoCache:     downloadNoCache,
		MaxAttempts: downloadRetries,
	}
	if downloadRetries < 0 {
		return opts, fmt.Errorf("--retries must not be negative")
	}
	if downloadRateLimit != "" {
		n, err := humanize.ParseBytes(downloadRateLimit)
		if err != nil {
			return opts, fmt.Errorf("invalid --rate-limit: %w", err)
		}
		opts.RateLimit = int64(n)
	}
	if downloadBufferSize != "" {
		n, err := humanize.ParseBytes(downloadBufferSize)
		if err != nil || n == 0 {
			return opts, fmt.Errorf("invalid --buffer-size %q", downloadBufferSize)
		}
		opts.BufferSize = int(n)
	}
	return opts, nil
}

// useInteractive reports whether the progress bar display should be used
func useInteractive(out io.Writer) bool {
	if downloadPlain || jsonOutput {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// plainProgress prints a line when a download starts and whenever the
// percentage moves to a new tenth. Unknown-size transfers print once.
func plainProgress(w io.Writer) core.ProgressFunc {
	lastStep := -1
	announced := false
	return func(p transfer.Progress) {
		if !p.Known {
			if !announced {
				fmt.Fprintln(w, "downloading...")
				announced = true
			}
			return
		}
		step := int(p.Fraction * 10)
		if step == lastStep {
			return
		}
		lastStep = step
		fmt.Fprintf(w, "%5s  %s / %s\n", p.String(), humanize.Bytes(uint64(p.Transferred)), humanize.Bytes(uint64(p.Total)))
	}
}
