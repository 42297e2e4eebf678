package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hedgemm/hmm/internal/domain"
)

// maxErrorBody bounds how much of a failed response is read for diagnostics
const maxErrorBody = 10 * 1024

// GetJSON performs a GET request and decodes the JSON body into v.
//
// Non-2xx statuses and transport failures are returned as
// *domain.RequestFailedError. 401 and 403 additionally match
// domain.ErrAuthRequired.
func GetJSON(ctx context.Context, client *http.Client, url string, header http.Header, v any) (err error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &domain.RequestFailedError{URL: url, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing response body: %w", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reqErr := &domain.RequestFailedError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			reqErr.Err = domain.ErrAuthRequired
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return reqErr
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}
