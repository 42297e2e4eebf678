package curseforge

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hedgemm/hmm/internal/domain"
	"github.com/hedgemm/hmm/internal/source"
)

const defaultBaseURL = "https://api.curseforge.com"

// client wraps the CurseForge REST API v1
type client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

func newClient(httpClient *http.Client, apiKey string) *client {
	return &client{
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
	}
}

func (c *client) get(ctx context.Context, path string, result any) error {
	header := http.Header{}
	if c.apiKey != "" {
		header.Set("x-api-key", c.apiKey)
	}
	return source.GetJSON(ctx, c.httpClient, c.baseURL+path, header, result)
}

// modFile fetches a specific file for a mod
func (c *client) modFile(ctx context.Context, modID, fileID int) (*file, error) {
	var resp apiResponse[file]
	if err := c.get(ctx, fmt.Sprintf("/v1/mods/%d/files/%d", modID, fileID), &resp); err != nil {
		return nil, fmt.Errorf("getting mod file: %w", err)
	}
	return &resp.Data, nil
}

// downloadURL asks the API for a file's download URL. Used when the file
// record leaves downloadUrl empty.
func (c *client) downloadURL(ctx context.Context, modID, fileID int) (string, error) {
	var resp apiResponse[string]
	err := c.get(ctx, fmt.Sprintf("/v1/mods/%d/files/%d/download-url", modID, fileID), &resp)

	var reqErr *domain.RequestFailedError
	if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusForbidden && c.apiKey != "" {
		// with a valid key, 403 here means the author disabled third-party downloads
		return "", fmt.Errorf("%w: mod author has disabled third-party downloads", domain.ErrNoDownloadLink)
	}
	if err != nil {
		return "", fmt.Errorf("getting download URL: %w", err)
	}
	return resp.Data, nil
}
