package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/justinlevinedotme/pcmgen/internal/registry"
)

// MirrorFetcher pulls an already-built packages.json from another index and
// re-exposes its entries through this one.
type MirrorFetcher struct {
	http *http.Client
}

// NewMirrorFetcher creates a mirror fetcher
func NewMirrorFetcher(hc *http.Client) *MirrorFetcher {
	return &MirrorFetcher{http: hc}
}

// Fetch implements Fetcher for mirror_packages_json sources
func (f *MirrorFetcher) Fetch(ctx context.Context, src registry.Source) ([]RawPackage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.PackagesURL, nil)
	if err != nil {
		return nil, fetchErr(src, err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fetchErr(src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fetchErr(src, fmt.Errorf("unexpected status %s from %s", resp.Status, src.PackagesURL))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fetchErr(src, err)
	}

	var doc any
	if err := decodeTolerantJSON(body, &doc); err != nil {
		return nil, fetchErr(src, fmt.Errorf("failed to parse packages document: %w", err))
	}

	// Accept a bare array or an object wrapping it
	list, ok := doc.([]any)
	if !ok {
		obj, isObj := doc.(map[string]any)
		if !isObj {
			return nil, fetchErr(src, fmt.Errorf("packages document is neither array nor object"))
		}
		if pkgs, found := obj["packages"].([]any); found {
			list = pkgs
		} else if data, found := obj["data"].([]any); found {
			list = data
		} else {
			return nil, fetchErr(src, fmt.Errorf("packages document has no packages field"))
		}
	}

	out := make([]RawPackage, 0, len(list))
	for _, item := range list {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, RawPackage{Fields: fields})
	}
	return out, nil
}
