package fetcher

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"

	"github.com/justinlevinedotme/pcmgen/internal/models"
	"github.com/justinlevinedotme/pcmgen/internal/registry"
)

// RawPackage is the fetch result for one upstream package before
// validation. Fields holds the manifest as parsed, so the validator can
// normalize the looser shapes (license objects, contact maps) upstream
// manifests use. Versions is populated for release scans where the
// download location and checksum are computed from the asset itself;
// mirror fetches leave it empty and carry versions inside Fields.
type RawPackage struct {
	Fields   map[string]any
	Versions []models.Version
}

// Fetcher retrieves the raw package metadata for one registry source
type Fetcher interface {
	Fetch(ctx context.Context, src registry.Source) ([]RawPackage, error)
}

// Dispatcher routes each source to the fetcher for its mode
type Dispatcher struct {
	fetchers map[registry.Mode]Fetcher
}

// NewDispatcher builds the default fetcher set sharing one retrying HTTP
// client. The token is optional; unauthenticated GitHub access works but
// rate-limits quickly.
func NewDispatcher(token string) *Dispatcher {
	hc := newHTTPClient()
	return &Dispatcher{
		fetchers: map[registry.Mode]Fetcher{
			registry.ModeReleaseScan: NewGitHubFetcher(token, hc),
			registry.ModeMirror:      NewMirrorFetcher(hc),
		},
	}
}

// Fetch implements Fetcher
func (d *Dispatcher) Fetch(ctx context.Context, src registry.Source) ([]RawPackage, error) {
	f, ok := d.fetchers[src.Mode]
	if !ok {
		return nil, fetchErr(src, fmt.Errorf("no fetcher for mode %q", src.Mode))
	}
	return f.Fetch(ctx, src)
}

func newHTTPClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil
	return rc.StandardClient()
}

func authClient(token string, base *http.Client) *http.Client {
	if token == "" {
		return base
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	return oauth2.NewClient(ctx, ts)
}

func fetchErr(src registry.Source, err error) error {
	return &models.IndexError{
		Type:   models.ErrFetch,
		Source: src.ID,
		Err:    err,
	}
}
