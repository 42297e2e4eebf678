// Package gamebanana resolves GameBanana file IDs into download URLs.
package gamebanana

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/hedgemm/hmm/internal/domain"
	"github.com/hedgemm/hmm/internal/source"
)

const defaultBaseURL = "https://gamebanana.com/apiv11"

// fileData is the subset of the File endpoint response we use
type fileData struct {
	ID          int64  `json:"_idRow"`
	FileName    string `json:"_sFile"`
	Size        int64  `json:"_nFilesize"`
	DownloadURL string `json:"_sDownloadUrl"`
	MD5         string `json:"_sMd5Checksum"`
	Version     string `json:"_sVersion"`
}

// GameBanana implements source.Resolver
type GameBanana struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a GameBanana source. A nil client uses http.DefaultClient.
func New(httpClient *http.Client) *GameBanana {
	return &GameBanana{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
	}
}

// ID returns the source identifier
func (g *GameBanana) ID() string {
	return "gamebanana"
}

// Name returns the display name
func (g *GameBanana) Name() string {
	return "GameBanana"
}

// Resolve looks up a numeric file ID
func (g *GameBanana) Resolve(ctx context.Context, ref string) (*domain.RemoteFile, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: gamebanana file id %q", domain.ErrInvalidReference, ref)
	}

	var data fileData
	url := fmt.Sprintf("%s/File/%d", g.baseURL, id)
	if err := source.GetJSON(ctx, g.httpClient, url, nil, &data); err != nil {
		return nil, fmt.Errorf("getting file %d: %w", id, err)
	}
	if data.DownloadURL == "" {
		return nil, fmt.Errorf("%w: gamebanana file %d", domain.ErrNoDownloadLink, id)
	}

	return &domain.RemoteFile{
		SourceID: g.ID(),
		Ref:      strconv.FormatInt(id, 10),
		URL:      data.DownloadURL,
		FileName: data.FileName,
		Version:  data.Version,
		Size:     data.Size,
		Checksum: strings.ToLower(data.MD5),
	}, nil
}
