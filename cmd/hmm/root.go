package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hedgemm/hmm/internal/core"
	"github.com/hedgemm/hmm/internal/logger"
	"github.com/hedgemm/hmm/internal/source/curseforge"
	"github.com/hedgemm/hmm/internal/source/gamebanana"
	"github.com/hedgemm/hmm/internal/source/nexusmods"
	"github.com/hedgemm/hmm/internal/transfer"

	"github.com/cenkalti/log"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
)

// ErrCancelled is returned when the user cancels an operation.
// When returned from a command, Execute exits with code 2.
var ErrCancelled = errors.New("cancelled")

var (
	version = "0.3.0"

	// Global flags
	configDir  string
	dataDir    string
	cacheDir   string
	verbose    bool
	jsonOutput bool
	noColor    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hmm",
	Short: "Hedge Mod Manager - download mods from the terminal",
	Long: `hmm downloads mod files from direct links and mod sites such as
GameBanana, Nexus Mods and CurseForge, with progress, retries, a local
cache and a download history.

Use subcommands for operations. Run 'hmm --help' for available commands.`,
	Version:       version,
	SilenceUsage:  true, // Runtime errors should not print usage
	SilenceErrors: true, // We handle error output in Execute()
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(log.DEBUG)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default: ~/.config/hmm)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default: ~/.local/share/hmm)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache", "", "cache directory (default: cache_path from config, or <data>/cache)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format (download, history, cache list)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// colorEnabled returns true if colored output should be used (respects --no-color and NO_COLOR env).
// NO_COLOR: if set (any value), color is disabled per https://no-color.org
func colorEnabled() bool {
	if noColor {
		return false
	}
	return os.Getenv("NO_COLOR") == ""
}

const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
)

func colorize(code, s string) string {
	if !colorEnabled() {
		return s
	}
	return code + s + ansiReset
}

func colorGreen(s string) string  { return colorize(ansiGreen, s) }
func colorRed(s string) string    { return colorize(ansiRed, s) }
func colorYellow(s string) string { return colorize(ansiYellow, s) }

// exitCode maps a command error to the process exit status.
// 0 = success, 1 = error, 2 = cancelled by the user.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrCancelled), errors.Is(err, transfer.ErrCancelled):
		return 2
	default:
		return 1
	}
}

// Execute runs the root command.
// When --json is set and an error occurs, prints {"error":"..."} to stdout before exiting.
// Cancellation exits with code 2 without printing JSON, since it is a user action, not an error.
func Execute() {
	err := rootCmd.Execute()
	code := exitCode(err)
	switch code {
	case 0:
		return
	case 2:
		fmt.Fprintln(os.Stderr, colorYellow("Cancelled."))
	default:
		if jsonOutput {
			fmt.Printf(`{"error":%q}`+"\n", err.Error())
		} else {
			fmt.Fprintf(os.Stderr, "%s %v\n", colorRed("Error:"), err)
		}
	}
	os.Exit(code)
}

// initService creates and initializes the core service
func initService() (*core.Service, error) {
	cfg, err := getServiceConfig()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.ConfigDir, 0755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}

	svc, err := core.NewService(cfg)
	if err != nil {
		return nil, err
	}

	registerSources(svc)
	return svc, nil
}

// registerSources registers all available mod sources with the service
func registerSources(svc *core.Service) {
	client := svc.HTTPClient()
	svc.RegisterSource(gamebanana.New(client))
	svc.RegisterSource(nexusmods.New(client, svc.SourceAPIKey("nexusmods")))
	svc.RegisterSource(curseforge.New(client, svc.SourceAPIKey("curseforge")))
}

// getServiceConfig returns the service configuration with defaults
func getServiceConfig() (core.ServiceConfig, error) {
	cfg := core.ServiceConfig{
		ConfigDir:  configDir,
		DataDir:    dataDir,
		CacheDir:   cacheDir,
		HTTPClient: &http.Client{Transport: http.DefaultTransport},
	}

	if cfg.ConfigDir != "" && cfg.DataDir != "" {
		return cfg, nil
	}

	homeDir, err := homedir.Dir()
	if err != nil {
		return core.ServiceConfig{}, fmt.Errorf("home directory: %w", err)
	}
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = filepath.Join(homeDir, ".config", "hmm")
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(homeDir, ".local", "share", "hmm")
	}
	return cfg, nil
}

// closeService closes svc, reporting but not failing on errors
func closeService(svc *core.Service) {
	if err := svc.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing service: %v\n", err)
	}
}
