// Package curseforge resolves CurseForge file references of the form
// "<modID>/<fileID>".
package curseforge

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/hedgemm/hmm/internal/domain"
)

// CurseForge implements source.Resolver
type CurseForge struct {
	client *client
}

// New creates a CurseForge source
func New(httpClient *http.Client, apiKey string) *CurseForge {
	return &CurseForge{
		client: newClient(httpClient, apiKey),
	}
}

// ID returns the source identifier
func (c *CurseForge) ID() string {
	return "curseforge"
}

// Name returns the display name
func (c *CurseForge) Name() string {
	return "CurseForge"
}

// IsAuthenticated returns true if an API key is configured
func (c *CurseForge) IsAuthenticated() bool {
	return c.client.apiKey != ""
}

// Resolve fetches file metadata, falling back to the download-url endpoint
// when the record carries no URL
func (c *CurseForge) Resolve(ctx context.Context, ref string) (*domain.RemoteFile, error) {
	modID, fileID, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	if !c.IsAuthenticated() {
		return nil, fmt.Errorf("%w: set CURSEFORGE_API_KEY or run 'hmm auth set curseforge'", domain.ErrAuthRequired)
	}

	f, err := c.client.modFile(ctx, modID, fileID)
	if err != nil {
		return nil, err
	}

	url := f.DownloadURL
	if url == "" {
		url, err = c.client.downloadURL(ctx, modID, fileID)
		if err != nil {
			return nil, err
		}
	}
	if url == "" {
		return nil, fmt.Errorf("%w: curseforge file %d", domain.ErrNoDownloadLink, fileID)
	}

	return &domain.RemoteFile{
		SourceID: c.ID(),
		Ref:      fmt.Sprintf("%d/%d", modID, fileID),
		URL:      url,
		FileName: f.FileName,
		Version:  f.DisplayName,
		Size:     f.FileLength,
		Checksum: strings.ToLower(f.md5()),
	}, nil
}

func parseRef(ref string) (modID, fileID int, err error) {
	modStr, fileStr, ok := strings.Cut(strings.Trim(ref, "/"), "/")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q (expected <modID>/<fileID>)", domain.ErrInvalidReference, ref)
	}
	modID, err = strconv.Atoi(modStr)
	if err != nil || modID <= 0 {
		return 0, 0, fmt.Errorf("%w: invalid mod ID %q", domain.ErrInvalidReference, modStr)
	}
	fileID, err = strconv.Atoi(fileStr)
	if err != nil || fileID <= 0 {
		return 0, 0, fmt.Errorf("%w: invalid file ID %q", domain.ErrInvalidReference, fileStr)
	}
	return modID, fileID, nil
}
