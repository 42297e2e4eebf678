package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var updateCheckCmd = &cobra.Command{
	Use:   "update-check",
	Short: "Check whether a newer hmm release is available",
	Long: `Read the release manifest configured as update_manifest and compare
its version with this build.

The manifest is a JSON document such as:
  {"version": "1.2.0", "url": "https://example.com/hmm-1.2.0.tar.gz", "changelog": "..."}`,
	Args: cobra.NoArgs,
	RunE: runUpdateCheck,
}

func init() {
	rootCmd.AddCommand(updateCheckCmd)
}

func runUpdateCheck(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	release, newer, err := service.CheckForUpdate(cmd.Context(), version)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return json.NewEncoder(out).Encode(struct {
			Current   string `json:"current"`
			Latest    string `json:"latest"`
			Available bool   `json:"update_available"`
			URL       string `json:"url,omitempty"`
		}{version, release.Version, newer, release.URL})
	}

	if !newer {
		fmt.Fprintf(out, "hmm %s is up to date.\n", version)
		return nil
	}
	fmt.Fprintf(out, "%s %s -> %s\n", colorGreen("Update available:"), version, release.Version)
	if release.URL != "" {
		fmt.Fprintf(out, "Download: %s\n", release.URL)
	}
	if release.Changelog != "" {
		fmt.Fprintf(out, "\n%s\n", release.Changelog)
	}
	return nil
}
