// Package source resolves mod references from remote mod sites into
// directly downloadable files.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/hedgemm/hmm/internal/domain"
)

// Resolver turns a source-specific reference into a downloadable file
type Resolver interface {
	// Identity
	ID() string
	Name() string

	// Resolve looks up ref and returns where its file can be downloaded from.
	// The ref format is defined by each source.
	Resolve(ctx context.Context, ref string) (*domain.RemoteFile, error)
}

// KeyedResolver is a Resolver that needs an API key. Only these sources
// accept stored tokens.
type KeyedResolver interface {
	Resolver
	IsAuthenticated() bool
}

// ParseReference splits "sourceID:ref" into its parts.
func ParseReference(s string) (sourceID, ref string, err error) {
	sourceID, ref, ok := strings.Cut(s, ":")
	sourceID = strings.TrimSpace(sourceID)
	ref = strings.TrimSpace(ref)
	if !ok || sourceID == "" || ref == "" {
		return "", "", fmt.Errorf("%w: %q (expected source:ref)", domain.ErrInvalidReference, s)
	}
	return strings.ToLower(sourceID), ref, nil
}
