// Package nexusmods resolves Nexus Mods file references. References have
// the form "<game>/<modID>/<fileID>", e.g. "skyrimspecialedition/266/1000".
package nexusmods

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/hedgemm/hmm/internal/domain"
)

// NexusMods implements source.Resolver
type NexusMods struct {
	client *client
}

// New creates a NexusMods source. Downloads need a personal API key.
func New(httpClient *http.Client, apiKey string) *NexusMods {
	return &NexusMods{
		client: newClient(httpClient, apiKey, graphqlEndpoint, restBaseURL),
	}
}

// ID returns the source identifier
func (n *NexusMods) ID() string {
	return "nexusmods"
}

// Name returns the display name
func (n *NexusMods) Name() string {
	return "Nexus Mods"
}

// IsAuthenticated returns true if an API key is configured
func (n *NexusMods) IsAuthenticated() bool {
	return n.client.apiKey != ""
}

// Resolve looks up a file's metadata and its first CDN download link
func (n *NexusMods) Resolve(ctx context.Context, ref string) (*domain.RemoteFile, error) {
	gameID, modID, fileID, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	if !n.IsAuthenticated() {
		return nil, fmt.Errorf("%w: set NEXUSMODS_API_KEY or run 'hmm auth set nexusmods'", domain.ErrAuthRequired)
	}

	files, err := n.client.modFiles(ctx, gameID, modID)
	if err != nil {
		return nil, err
	}

	var meta *fileData
	for i := range files {
		if files[i].FileID == fileID {
			meta = &files[i]
			break
		}
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: file %d not found in mod %d", domain.ErrInvalidReference, fileID, modID)
	}

	links, err := n.client.downloadLinks(ctx, gameID, modID, fileID)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 || links[0].URI == "" {
		return nil, fmt.Errorf("%w: nexusmods file %d", domain.ErrNoDownloadLink, fileID)
	}

	fileName := meta.URI
	if fileName == "" {
		fileName = meta.Name
	}

	return &domain.RemoteFile{
		SourceID: n.ID(),
		Ref:      ref,
		URL:      links[0].URI,
		FileName: fileName,
		Version:  meta.Version,
		Size:     meta.size(),
	}, nil
}

func parseRef(ref string) (gameID string, modID, fileID int, err error) {
	parts := strings.Split(strings.Trim(ref, "/"), "/")
	if len(parts) != 3 || parts[0] == "" {
		return "", 0, 0, fmt.Errorf("%w: %q (expected <game>/<modID>/<fileID>)", domain.ErrInvalidReference, ref)
	}

	modID, err = strconv.Atoi(parts[1])
	if err != nil || modID <= 0 {
		return "", 0, 0, fmt.Errorf("%w: invalid mod ID %q", domain.ErrInvalidReference, parts[1])
	}
	fileID, err = strconv.Atoi(parts[2])
	if err != nil || fileID <= 0 {
		return "", 0, 0, fmt.Errorf("%w: invalid file ID %q", domain.ErrInvalidReference, parts[2])
	}
	return strings.ToLower(parts[0]), modID, fileID, nil
}
