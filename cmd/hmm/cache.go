package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the download cache",
	Long: `Downloaded files are kept in a cache keyed by their URL so repeated
downloads are served locally.

Use 'hmm cache list' to show cached files.
Use 'hmm cache clear' to remove them.
Use 'hmm cache path' to print the cache directory.`,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached files",
	Args:  cobra.NoArgs,
	RunE:  runCacheList,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [key...]",
	Short: "Remove cached files",
	Long: `Remove all cached files, or only the given keys.

Examples:
  hmm cache clear
  hmm cache clear c79bc0a7`,
	RunE: runCacheClear,
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the cache directory",
	Args:  cobra.NoArgs,
	RunE:  runCachePath,
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheList(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	entries, err := service.Cache().List()
	if err != nil {
		return fmt.Errorf("listing cache: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "Cache is empty.")
		return nil
	}

	var total int64
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSIZE\tFILES")
	fmt.Fprintln(w, "---\t----\t-----")
	for _, e := range entries {
		total += e.Size
		for i, f := range e.Files {
			if i == 0 {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Key, humanize.Bytes(uint64(e.Size)), f)
				continue
			}
			fmt.Fprintf(w, "\t\t%s\n", f)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTotal: %s in %d entries\n", humanize.Bytes(uint64(total)), len(entries))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	c := service.Cache()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		size, err := c.Size()
		if err != nil {
			return fmt.Errorf("reading cache size: %w", err)
		}
		if err := c.Clear(); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintf(out, "Freed %s.\n", humanize.Bytes(uint64(size)))
		return nil
	}

	for _, key := range args {
		if err := c.Delete(key); err != nil {
			return fmt.Errorf("removing %s: %w", key, err)
		}
		fmt.Fprintf(out, "Removed %s\n", key)
	}
	return nil
}

func runCachePath(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	fmt.Fprintln(cmd.OutOrStdout(), service.Cache().BasePath())
	return nil
}
