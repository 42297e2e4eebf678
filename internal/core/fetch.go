package core

import (
	"context"
	"net/http"

	"github.com/hedgemm/hmm/internal/source"
)

// FetchJSON performs a GET request and decodes the JSON response body into v.
func FetchJSON(ctx context.Context, client *http.Client, url string, v any) error {
	return source.GetJSON(ctx, client, url, nil, v)
}
