package nexusmods

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hasura/go-graphql-client"

	"github.com/hedgemm/hmm/internal/source"
)

const (
	graphqlEndpoint = "https://api.nexusmods.com/v2/graphql"
	restBaseURL     = "https://api.nexusmods.com"
)

// client wraps the NexusMods GraphQL and REST APIs
type client struct {
	gql     *graphql.Client
	http    *http.Client
	restURL string
	apiKey  string
}

func newClient(httpClient *http.Client, apiKey, gqlURL, restURL string) *client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	// every request carries the API key header
	authed := &http.Client{
		Transport: &apiKeyTransport{base: httpClient.Transport, apiKey: apiKey},
		Timeout:   httpClient.Timeout,
	}

	return &client{
		gql:     graphql.NewClient(gqlURL, authed),
		http:    authed,
		restURL: restURL,
		apiKey:  apiKey,
	}
}

type apiKeyTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.apiKey != "" {
		req = req.Clone(req.Context())
		req.Header.Set("apikey", t.apiKey)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// modFiles lists the files attached to a mod
func (c *client) modFiles(ctx context.Context, gameID string, modID int) ([]fileData, error) {
	var query struct {
		ModFiles []fileData `graphql:"modFiles(modId: $modId, gameId: $gameId)"`
	}

	variables := map[string]any{
		"gameId": graphql.String(gameID),
		"modId":  graphql.Int(modID),
	}

	if err := c.gql.Query(ctx, &query, variables); err != nil {
		return nil, fmt.Errorf("querying mod files: %w", err)
	}
	return query.ModFiles, nil
}

// downloadLinks returns the CDN links for a file. Requires an API key.
func (c *client) downloadLinks(ctx context.Context, gameID string, modID, fileID int) ([]downloadLink, error) {
	url := fmt.Sprintf("%s/v1/games/%s/mods/%d/files/%d/download_link.json", c.restURL, gameID, modID, fileID)

	var links []downloadLink
	if err := source.GetJSON(ctx, c.http, url, nil, &links); err != nil {
		return nil, fmt.Errorf("getting download links: %w", err)
	}
	return links, nil
}
