// Package pipeline orchestrates one index generation run: fetch all
// registry sources concurrently, validate, render both artifacts in memory,
// then publish atomically. Per-source failures exclude the entry and are
// collected into the run report; template and render failures abort before
// anything is written, leaving the previous run's artifacts intact.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/justinlevinedotme/pcmgen/internal/fetcher"
	"github.com/justinlevinedotme/pcmgen/internal/models"
	"github.com/justinlevinedotme/pcmgen/internal/registry"
	"github.com/justinlevinedotme/pcmgen/internal/renderer"
	"github.com/justinlevinedotme/pcmgen/internal/resources"
	"github.com/justinlevinedotme/pcmgen/internal/signer"
	"github.com/justinlevinedotme/pcmgen/internal/utils"
	"github.com/justinlevinedotme/pcmgen/internal/validator"
)

const (
	DefaultConcurrency  = 4
	DefaultFetchTimeout = 60 * time.Second

	defaultRepoName       = "Custom KiCad PCM Repository"
	defaultMaintainerName = "Unknown"
)

// Failure records one excluded source and why
type Failure struct {
	SourceID string
	Err      error
}

// Report is the outcome of a completed run
type Report struct {
	Packages []models.Package
	Failures []Failure
}

// Runner executes pipeline runs
type Runner struct {
	cfg   models.IndexConfig
	fetch fetcher.Fetcher
	sign  signer.Signer

	// Now is the run clock; overridable in tests
	Now func() time.Time
}

// New creates a Runner. sign may be nil for unsigned repositories.
func New(cfg models.IndexConfig, f fetcher.Fetcher, sign signer.Signer) *Runner {
	return &Runner{
		cfg:   cfg,
		fetch: f,
		sign:  sign,
		Now:   time.Now,
	}
}

type fetchResult struct {
	packages []fetcher.RawPackage
	err      error
}

// Run executes one full pipeline pass over the given registry
func (r *Runner) Run(ctx context.Context, reg *registry.Config) (*Report, error) {
	results := r.fetchAll(ctx, reg.Sources)

	report := &Report{}
	for i, src := range reg.Sources {
		res := results[i]
		if res.err != nil {
			logrus.Warnf("Skipping source %s: %v", src.ID, res.err)
			report.Failures = append(report.Failures, Failure{SourceID: src.ID, Err: res.err})
			continue
		}
		for _, raw := range res.packages {
			pkg, err := validator.Resolve(src, raw)
			if err != nil {
				logrus.Warnf("Skipping source %s: %v", src.ID, err)
				report.Failures = append(report.Failures, Failure{SourceID: src.ID, Err: err})
				continue
			}
			if r.cfg.AssetsDir != "" {
				resources.WireLocalAssets(pkg, r.cfg.AssetsDir)
			}
			report.Packages = append(report.Packages, *pkg)
		}
	}

	if err := r.publish(reg, report); err != nil {
		return nil, err
	}

	logrus.Infof("Wrote %d package entries (%d source failures)",
		len(report.Packages), len(report.Failures))
	return report, nil
}

// fetchAll runs all source fetches through a bounded worker pool. Each
// result lands in its own slot, so no locking is needed, and the pool is
// joined before validation to keep output order and count deterministic.
func (r *Runner) fetchAll(ctx context.Context, sources []registry.Source) []fetchResult {
	concurrency := r.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	timeout := r.cfg.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	results := make([]fetchResult, len(sources))

	var eg errgroup.Group
	eg.SetLimit(concurrency)
	for i, src := range sources {
		eg.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			logrus.Infof("Fetching %s (%s)", src.ID, src.Location())
			pkgs, err := r.fetch.Fetch(fetchCtx, src)
			results[i] = fetchResult{packages: pkgs, err: err}
			return nil
		})
	}
	eg.Wait()

	return results
}

// publish renders every artifact in memory first and only then writes,
// each through a temp-file rename. A rendering failure leaves all
// previously published files untouched.
func (r *Runner) publish(reg *registry.Config, report *Report) error {
	now := r.Now()

	packagesBytes, err := renderer.RenderPackages(report.Packages)
	if err != nil {
		return err
	}

	var resourcesBytes []byte
	if r.cfg.AssetsDir != "" {
		resourcesBytes, err = resources.Build(r.cfg.AssetsDir)
		if err != nil {
			return &models.IndexError{Type: models.ErrRender, Err: err}
		}
	}

	repoBytes, err := renderer.RenderRepository(r.repositoryMeta(reg, resourcesBytes != nil), packagesBytes, resourcesBytes, now)
	if err != nil {
		return err
	}

	doc, err := os.ReadFile(r.cfg.ReadmePath)
	if err != nil {
		return &models.IndexError{Type: models.ErrTemplate, Err: err}
	}
	updatedDoc, err := renderer.UpdateDocument(doc, report.Packages, now)
	if err != nil {
		return err
	}

	files := map[string][]byte{
		filepath.Join(r.cfg.OutputDir, "packages.json"):   packagesBytes,
		filepath.Join(r.cfg.OutputDir, "repository.json"): repoBytes,
		r.cfg.ReadmePath: updatedDoc,
	}

	if resourcesBytes != nil {
		files[filepath.Join(r.cfg.OutputDir, "resources.zip")] = resourcesBytes
	}

	if r.sign != nil {
		for _, name := range []string{"packages.json", "repository.json"} {
			sig, err := r.sign.SignDetached(files[filepath.Join(r.cfg.OutputDir, name)])
			if err != nil {
				return &models.IndexError{Type: models.ErrRender, Err: err}
			}
			files[filepath.Join(r.cfg.OutputDir, name+".asc")] = sig
		}
	}

	for path, data := range files {
		if err := utils.AtomicWriteFile(path, data, 0644); err != nil {
			return &models.IndexError{Type: models.ErrRender, Err: err}
		}
	}

	// Drop a stale resources.zip when the assets folder went away
	if resourcesBytes == nil {
		stale := filepath.Join(r.cfg.OutputDir, "resources.zip")
		if _, err := os.Stat(stale); err == nil {
			if err := os.Remove(stale); err == nil {
				logrus.Info("Removed stale resources.zip")
			}
		}
	}

	return nil
}

// repositoryMeta resolves the repository-level descriptor fields, letting
// the run config's publish target override the registry's.
func (r *Runner) repositoryMeta(reg *registry.Config, hasResources bool) renderer.RepositoryMeta {
	cfg := r.cfg
	if cfg.PublishRepo == "" {
		cfg.PublishRepo = reg.Publish.Repo
	}
	if cfg.PublishBranch == "" {
		cfg.PublishBranch = reg.Publish.Branch
	}

	meta := renderer.RepositoryMeta{
		Name:        reg.Name,
		Maintainer:  reg.Maintainer,
		PackagesURL: cfg.RawURL("packages.json"),
	}
	if meta.Name == "" {
		meta.Name = defaultRepoName
	}
	if meta.Maintainer.Name == "" {
		meta.Maintainer.Name = defaultMaintainerName
	}
	if hasResources {
		meta.ResourcesURL = cfg.RawURL("resources.zip")
	}
	return meta
}
