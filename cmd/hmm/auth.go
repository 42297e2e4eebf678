package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hedgemm/hmm/internal/core"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API keys for mod sources",
	Long: `Manage API keys for mod sources that require them.

Use 'hmm auth login <source>' to store a key.
Use 'hmm auth logout <source>' to remove it.
Use 'hmm auth status' to see which sources have a key.

Keys can also be given through NEXUSMODS_API_KEY and CURSEFORGE_API_KEY,
which take precedence over stored keys.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login <source>",
	Short: "Store an API key for a mod source",
	Long: `Store an API key for a mod source.

For NexusMods:
  1. Visit https://www.nexusmods.com/users/myaccount?tab=api
  2. Copy your Personal API Key

For CurseForge:
  1. Visit https://console.curseforge.com/
  2. Create a project and generate an API key`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout <source>",
	Short: "Remove the stored API key for a mod source",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status for all sources",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

// checkSupportedSource fails unless sourceID is a registered source that takes an API key
func checkSupportedSource(service *core.Service, sourceID string) error {
	if _, err := service.AuthSource(sourceID); err != nil {
		var ids []string
		for _, src := range service.AuthSources() {
			ids = append(ids, src.ID())
		}
		return fmt.Errorf("%w (supported: %s)", err, strings.Join(ids, ", "))
	}
	return nil
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	sourceID := args[0]

	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	if err := checkSupportedSource(service, sourceID); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, "Enter API key: ")
	apiKey, err := readAPIKey(cmd.InOrStdin(), out)
	if err != nil {
		return fmt.Errorf("reading API key: %w", err)
	}
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	if err := service.SaveSourceToken(sourceID, apiKey); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	fmt.Fprintf(out, "Stored API key for %s (%s).\n", sourceID, maskAPIKey(apiKey))
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	sourceID := args[0]

	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	if err := checkSupportedSource(service, sourceID); err != nil {
		return err
	}

	removed, err := service.DeleteSourceToken(sourceID)
	if err != nil {
		return fmt.Errorf("removing token: %w", err)
	}

	if !removed {
		fmt.Fprintf(cmd.OutOrStdout(), "No stored credentials for %s.\n", sourceID)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s credentials.\n", sourceID)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	tokens, err := service.SourceTokens()
	if err != nil {
		return fmt.Errorf("reading tokens: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, src := range service.AuthSources() {
		envKey := getEnvKeyForSource(src.ID())
		if apiKey := os.Getenv(envKey); apiKey != "" {
			fmt.Fprintf(out, "%s: authenticated via %s (key: %s)\n", src.Name(), envKey, maskAPIKey(apiKey))
			continue
		}

		if token, ok := tokens[src.ID()]; ok {
			fmt.Fprintf(out, "%s: authenticated (key: %s, saved %s)\n", src.Name(), maskAPIKey(token.APIKey), humanize.Time(token.UpdatedAt))
			continue
		}

		fmt.Fprintf(out, "%s: not authenticated\n", src.Name())
	}
	return nil
}

// getEnvKeyForSource returns the environment variable name for a source's API key
func getEnvKeyForSource(sourceID string) string {
	if sourceID == "" {
		return ""
	}
	return strings.ToUpper(sourceID) + "_API_KEY"
}

// readAPIKey reads a key from in, hiding the input when in is a terminal
func readAPIKey(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimSpace(string(keyBytes)), nil
	}

	key, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(key), nil
}

// maskAPIKey returns a masked version of the API key (shows first 3 and last 3 chars)
func maskAPIKey(key string) string {
	if len(key) <= 6 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
