package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/hedgemm/hmm/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyUnique bool
	historyClear  bool
	historyURL    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past downloads",
	Long: `Show recorded downloads, newest first.

Examples:
  hmm history
  hmm history --limit 5
  hmm history --unique --json
  hmm history --url gamebanana:1234
  hmm history --clear`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum entries to show (0 = all)")
	historyCmd.Flags().BoolVar(&historyUnique, "unique", false, "show only the latest entry per URL")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete all history entries")
	historyCmd.Flags().StringVar(&historyURL, "url", "", "show only the latest entry for a URL or source:ref")

	rootCmd.AddCommand(historyCmd)
}

// historyEntry is the JSON shape of one history record
type historyEntry struct {
	URL        string    `json:"url"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	out := cmd.OutOrStdout()

	if historyClear {
		n, err := service.ClearHistory()
		if err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		fmt.Fprintf(out, "Removed %d history entries.\n", n)
		return nil
	}

	var records []domain.DownloadRecord
	if historyURL != "" {
		last, err := service.LastDownload(cmd.Context(), historyURL)
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}
		if last != nil {
			records = append(records, *last)
		}
	} else {
		records, err = service.History(historyLimit, historyUnique)
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}
	}

	if jsonOutput {
		entries := make([]historyEntry, len(records))
		for i, r := range records {
			entries[i] = historyEntry{
				URL:        r.URL,
				Path:       r.Path,
				Size:       r.Size,
				Checksum:   r.Checksum,
				Status:     string(r.Status),
				Error:      r.Error,
				StartedAt:  r.StartedAt,
				DurationMS: r.Duration().Milliseconds(),
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No downloads recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tSTATUS\tSIZE\tTIME\tURL")
	fmt.Fprintln(w, "----\t------\t----\t----\t---")
	for _, r := range records {
		size := "-"
		if r.Size > 0 {
			size = humanize.Bytes(uint64(r.Size))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(r.StartedAt),
			statusLabel(r.Status),
			size,
			r.Duration().Round(time.Millisecond),
			truncate(r.URL, 60),
		)
		if verbose && r.Error != "" {
			fmt.Fprintf(w, "\t\t\t\t%s\n", r.Error)
		}
	}
	return w.Flush()
}

func statusLabel(s domain.DownloadStatus) string {
	switch s {
	case domain.DownloadCompleted:
		return colorGreen(string(s))
	case domain.DownloadCancelled:
		return colorYellow(string(s))
	default:
		return colorRed(string(s))
	}
}

// truncate shortens s to max runes, ending with "..."
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
