// Package app is the application layer between the CLI and the core
// protocol packages. It constructs every dependency from a decoded
// config, exposes high-level operations that take raw CLI arguments, and
// carries cross-cutting concerns (progress reporting, Slack notification,
// post-install hooks) that the core packages know nothing about.
package app

import (
	"context"
	"fmt"

	"binrep/internal/backend"
	"binrep/internal/binrep"
	"binrep/internal/config"
	"binrep/internal/hook"
	"binrep/internal/notify"
	"binrep/internal/progress"
	"binrep/internal/puller"
	"binrep/internal/repository"
	"binrep/internal/resolver"
	"binrep/internal/syncer"
)

// App wires a decoded config into the concrete Backend, Repository,
// Puller, and Syncer it names, plus the Notifier used to report outcomes.
type App struct {
	cfg      config.Config
	repo     *repository.Repository
	puller   *puller.Puller
	syncer   *syncer.Syncer
	notifier *notify.Notifier
	log      binrep.Logger
}

// Options lets the CLI override defaults that a config file doesn't
// control: which logger to use and how many files a pull downloads
// concurrently.
type Options struct {
	Logger      binrep.Logger
	Reporter    progress.Reporter
	Concurrency int
}

// New builds an App from cfg. Slack notifications, if configured, and
// progress reporting are wired into every operation the returned App
// exposes.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = binrep.NewNopLogger()
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = progress.NewNopReporter()
	}

	backendCfg, err := cfg.BackendConfig()
	if err != nil {
		return nil, err
	}
	b, err := backend.New(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("app: construct backend: %w", err)
	}

	repo := repository.New(b, cfg.Verifier, log).WithReporter(reporter)

	p := puller.New(b, repo, opts.Concurrency, log).WithReporter(reporter)
	s := syncer.New(repo, p)

	return &App{
		cfg:      cfg,
		repo:     repo,
		puller:   p,
		syncer:   s,
		notifier: notify.New(cfg.Slack),
		log:      log,
	}, nil
}

// PushFile names a local file to publish under a given in-artifact name.
type PushFile struct {
	LocalPath string
	Name      string
}

// Push publishes a new version of artifactName. versionReq is either a
// concrete semver string or the "auto" sentinel, which bumps the highest
// existing patch version (or starts at 0.0.1 for a new artifact).
func (a *App) Push(ctx context.Context, artifactName, versionReq string, files []PushFile) (binrep.Manifest, error) {
	version := versionReq
	if versionReq == resolver.Auto {
		idx, err := a.repo.ListVersions(ctx, artifactName)
		if err != nil {
			return binrep.Manifest{}, err
		}
		version, err = resolver.NextAuto(idx.Versions)
		if err != nil {
			return binrep.Manifest{}, err
		}
	}

	signer, err := a.cfg.Signer()
	if err != nil {
		return binrep.Manifest{}, err
	}

	publishFiles := make([]repository.PublishFile, len(files))
	for i, f := range files {
		publishFiles[i] = repository.PublishFile{LocalPath: f.LocalPath, Name: f.Name}
	}

	m, err := a.repo.Publish(ctx, artifactName, version, publishFiles, a.cfg.ChecksumMethod(), signer)
	if err != nil {
		return m, err
	}

	a.notify(ctx, notify.PublishMessage(artifactName, m.Version))
	return m, nil
}

// Pull downloads artifactName at versionReq into destDir, then runs
// execCmd (if non-empty) against the files it installed.
func (a *App) Pull(ctx context.Context, artifactName, versionReq, destDir, execCmd string) (binrep.Manifest, error) {
	m, err := a.puller.Pull(ctx, artifactName, versionReq, destDir, true)
	if err != nil {
		return m, err
	}
	if err := hook.Run(ctx, execCmd, m, destDir); err != nil {
		return m, err
	}
	return m, nil
}

// Sync idempotently pulls artifactName at versionReq into destDir,
// running execCmd only when a pull actually happened.
func (a *App) Sync(ctx context.Context, artifactName, versionReq, destDir, execCmd string) (binrep.Manifest, bool, error) {
	m, pulled, err := a.syncer.Sync(ctx, artifactName, versionReq, destDir)
	if err != nil {
		return m, pulled, err
	}
	if pulled {
		if err := hook.Run(ctx, execCmd, m, destDir); err != nil {
			return m, pulled, err
		}
		a.notify(ctx, notify.SyncMessage(artifactName, m.Version, destDir))
	}
	return m, pulled, nil
}

func (a *App) notify(ctx context.Context, text string) {
	if _, err := a.notifier.Send(ctx, text); err != nil {
		a.log.Warn("slack notification failed", "error", err)
	}
}
