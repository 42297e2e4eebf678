package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/hedgemm/hmm/internal/domain"
)

// CheckForUpdate reads the release manifest at manifestURL and reports
// whether it announces a version newer than currentVersion.
func CheckForUpdate(ctx context.Context, client *http.Client, manifestURL, currentVersion string) (*domain.Release, bool, error) {
	if manifestURL == "" {
		return nil, false, fmt.Errorf("%w: no update manifest configured", domain.ErrInvalidConfig)
	}

	var release domain.Release
	if err := FetchJSON(ctx, client, manifestURL, &release); err != nil {
		return nil, false, fmt.Errorf("fetching update manifest: %w", err)
	}
	if release.Version == "" {
		return nil, false, errors.New("update manifest has no version")
	}

	return &release, CompareVersions(currentVersion, release.Version) < 0, nil
}

// CompareVersions compares two dotted version strings
// Returns: -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	parts1 := parseVersion(v1)
	parts2 := parseVersion(v2)

	for i := 0; i < max(len(parts1), len(parts2)); i++ {
		var p1, p2 int
		if i < len(parts1) {
			p1 = parts1[i]
		}
		if i < len(parts2) {
			p2 = parts2[i]
		}

		if p1 != p2 {
			if p1 < p2 {
				return -1
			}
			return 1
		}
	}

	return 0
}

// parseVersion splits a version string into numeric parts, ignoring a leading
// "v" and any suffix after the digits of a part ("1.0.0-beta" -> 1,0,0).
func parseVersion(v string) []int {
	v = strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")

	parts := strings.Split(v, ".")
	result := make([]int, 0, len(parts))
	for _, part := range parts {
		end := 0
		for end < len(part) && part[end] >= '0' && part[end] <= '9' {
			end++
		}
		n, _ := strconv.Atoi(part[:end])
		result = append(result, n)
	}
	return result
}
