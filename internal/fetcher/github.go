package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/google/go-github/v58/github"
	"github.com/sirupsen/logrus"

	"github.com/justinlevinedotme/pcmgen/internal/models"
	"github.com/justinlevinedotme/pcmgen/internal/registry"
	"github.com/justinlevinedotme/pcmgen/internal/utils"
)

const defaultAssetGlob = "*.zip"

// GitHubFetcher scans a repository's releases for archive assets that carry
// a package manifest, and turns each matching asset into a package version.
type GitHubFetcher struct {
	client *github.Client
	http   *http.Client
}

// NewGitHubFetcher creates a release-scan fetcher. The token is optional.
func NewGitHubFetcher(token string, hc *http.Client) *GitHubFetcher {
	return &GitHubFetcher{
		client: github.NewClient(authClient(token, hc)),
		http:   hc,
	}
}

// WithBaseURL redirects API calls, for tests against a local server
func (f *GitHubFetcher) WithBaseURL(base string) *GitHubFetcher {
	u, err := url.Parse(strings.TrimSuffix(base, "/") + "/")
	if err == nil {
		f.client.BaseURL = u
	}
	return f
}

// Fetch implements Fetcher for release_scan sources
func (f *GitHubFetcher) Fetch(ctx context.Context, src registry.Source) ([]RawPackage, error) {
	owner, repo, ok := strings.Cut(src.Repo, "/")
	if !ok {
		return nil, fetchErr(src, fmt.Errorf("invalid repo %q", src.Repo))
	}

	rx, err := globRegexp(src.AssetGlob)
	if err != nil {
		return nil, fetchErr(src, fmt.Errorf("invalid asset_glob %q: %w", src.AssetGlob, err))
	}

	releases, _, err := f.client.Repositories.ListReleases(ctx, owner, repo, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, fetchErr(src, fmt.Errorf("failed to list releases: %w", err))
	}

	// Newest first, so version de-duplication keeps the freshest asset
	sort.SliceStable(releases, func(i, j int) bool {
		return releases[i].GetCreatedAt().After(releases[j].GetCreatedAt().Time)
	})

	logrus.Debugf("Scanning repo %s (only_latest=%v, glob=%q)", src.Repo, src.OnlyLatest, src.AssetGlob)
	if len(releases) == 0 {
		logrus.Warnf("No releases found for %s", src.Repo)
	}

	byID := make(map[string]*RawPackage)
	var order []string

	for _, rel := range releases {
		tag := rel.GetTagName()
		logrus.Debugf("  release %s: %d asset(s)", tag, len(rel.Assets))

		for _, asset := range rel.Assets {
			name := asset.GetName()
			dlURL := asset.GetBrowserDownloadURL()
			if name == "" || dlURL == "" {
				continue
			}
			if !rx.MatchString(name) {
				logrus.Debugf("    skip %q: does not match glob", name)
				continue
			}

			blob, err := f.download(ctx, dlURL)
			if err != nil {
				return nil, fetchErr(src, fmt.Errorf("failed to download %s: %w", name, err))
			}

			manifest, mfName, err := ReadManifestFromArchive(blob)
			if err != nil {
				logrus.Warnf("Skipping asset %s of %s: %v", name, src.Repo, err)
				continue
			}

			pkgID := stringField(manifest, "identifier")
			if pkgID == "" {
				pkgID = src.ID
			}

			pkg, seen := byID[pkgID]
			if !seen {
				pkg = &RawPackage{Fields: manifest}
				byID[pkgID] = pkg
				order = append(order, pkgID)
			}

			versionStr := strings.TrimSpace(stringField(manifest, "version"))
			if versionStr == "" {
				versionStr = strings.TrimPrefix(tag, "v")
			}
			if hasVersion(pkg.Versions, versionStr) {
				logrus.Debugf("    version %s already present, skipping duplicate asset", versionStr)
				continue
			}

			pkg.Versions = append(pkg.Versions, models.Version{
				Version:        versionStr,
				DownloadURL:    assetDownloadURL(src.Repo, tag, name),
				DownloadSHA256: utils.SHA256Bytes(blob),
				DownloadSize:   int64(len(blob)),
				InstallSize:    intField(manifest, "install_size"),
				Status:         stringFieldDefault(manifest, "status", "testing"),
				KicadVersion:   stringFieldDefault(manifest, "kicad_version", "8.0"),
			})
			logrus.Debugf("    found %s; version=%s", mfName, versionStr)
		}

		if src.OnlyLatest {
			break
		}
	}

	out := make([]RawPackage, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

func (f *GitHubFetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// assetDownloadURL is the stable public download form for a release asset
func assetDownloadURL(ownerRepo, tag, assetName string) string {
	return fmt.Sprintf("https://github.com/%s/releases/download/%s/%s", ownerRepo, tag, assetName)
}

// globRegexp converts a simple * / ? glob into an anchored, case-sensitive
// regexp, matching GitHub asset names exactly.
func globRegexp(glob string) (*regexp.Regexp, error) {
	if glob == "" {
		glob = defaultAssetGlob
	}
	quoted := regexp.QuoteMeta(glob)
	quoted = strings.ReplaceAll(quoted, `\*`, `.*`)
	quoted = strings.ReplaceAll(quoted, `\?`, `.`)
	return regexp.Compile("^" + quoted + "$")
}

func hasVersion(versions []models.Version, v string) bool {
	for i := range versions {
		if versions[i].Version == v {
			return true
		}
	}
	return false
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringFieldDefault(m map[string]any, key, def string) string {
	if s := strings.TrimSpace(stringField(m, key)); s != "" {
		return s
	}
	return def
}

func intField(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}
