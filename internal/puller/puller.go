// Package puller materializes a resolved artifact version onto local
// disk: every file is downloaded into a staging directory, verified
// against its recorded checksum, and only then moved into place, so a
// destination directory never holds a partially-pulled artifact.
package puller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"binrep/internal/backend"
	"binrep/internal/binrep"
	"binrep/internal/checksum"
	"binrep/internal/lockfile"
	"binrep/internal/progress"
	"binrep/internal/repository"
)

// ErrDestinationExists is returned when a destination file already exists
// and overwrite was not requested.
var ErrDestinationExists = errors.New("puller: destination file already exists")

// ErrChecksumMismatch is returned when a downloaded file's checksum does
// not match the one recorded in its manifest entry.
var ErrChecksumMismatch = errors.New("puller: downloaded file checksum mismatch")

// Puller downloads artifact versions from a Backend, verifying every file
// against the manifest before it becomes visible at its destination path.
type Puller struct {
	backend     backend.Backend
	repo        *repository.Repository
	concurrency int
	log         binrep.Logger
	reporter    progress.Reporter
}

// New returns a Puller reading artifacts through repo and files through b.
// concurrency bounds how many files download at once; values <= 0 default
// to 4.
func New(b backend.Backend, repo *repository.Repository, concurrency int, log binrep.Logger) *Puller {
	if concurrency <= 0 {
		concurrency = 4
	}
	if log == nil {
		log = binrep.NewNopLogger()
	}
	return &Puller{backend: b, repo: repo, concurrency: concurrency, log: log, reporter: progress.NewNopReporter()}
}

// WithReporter sets the progress.Reporter used to report per-file byte
// progress during downloads. Passing nil restores the no-op reporter.
func (p *Puller) WithReporter(r progress.Reporter) *Puller {
	if r == nil {
		r = progress.NewNopReporter()
	}
	p.reporter = r
	return p
}

// Pull resolves versionReq against artifactName, downloads every file in
// the resulting manifest into destDir, and returns the manifest pulled.
// If overwrite is false, an existing file at any destination path aborts
// the pull before anything is downloaded.
func (p *Puller) Pull(ctx context.Context, artifactName, versionReq, destDir string, overwrite bool) (binrep.Manifest, error) {
	var m binrep.Manifest

	version, err := p.repo.Resolve(ctx, artifactName, versionReq)
	if err != nil {
		return m, err
	}
	m, err = p.repo.ReadManifest(ctx, artifactName, version)
	if err != nil {
		return m, err
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return m, fmt.Errorf("puller: create destination %s: %w", destDir, err)
	}

	lock, err := lockfile.Acquire(destDir)
	if err != nil {
		return m, err
	}
	defer lock.Unlock()

	destPaths := make([]string, len(m.Files))
	for i, f := range m.Files {
		dest := filepath.Join(destDir, f.Name)
		if !overwrite {
			if _, err := os.Stat(dest); err == nil {
				return m, fmt.Errorf("%w: %s", ErrDestinationExists, dest)
			} else if !os.IsNotExist(err) {
				return m, fmt.Errorf("puller: stat %s: %w", dest, err)
			}
		}
		destPaths[i] = dest
	}

	stagingDir, err := os.MkdirTemp(destDir, ".binrep-staging-*")
	if err != nil {
		return m, fmt.Errorf("puller: create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	stagedPaths := make([]string, len(m.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, f := range m.Files {
		i, f := i, f
		g.Go(func() error {
			staged, err := p.downloadAndVerify(gctx, artifactName, version, f, stagingDir)
			if err != nil {
				return err
			}
			stagedPaths[i] = staged
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return m, err
	}

	for i, f := range m.Files {
		if f.UnixMode != nil {
			if err := os.Chmod(stagedPaths[i], os.FileMode(*f.UnixMode&0o777)); err != nil {
				p.log.Warn("chmod failed, keeping default mode", "name", f.Name, "error", err)
			}
		}
		if overwrite {
			if err := os.RemoveAll(destPaths[i]); err != nil {
				return m, fmt.Errorf("puller: remove existing %s: %w", destPaths[i], err)
			}
		}
		if err := os.Rename(stagedPaths[i], destPaths[i]); err != nil {
			return m, fmt.Errorf("puller: move %s into place: %w", f.Name, err)
		}
	}

	return m, nil
}

func (p *Puller) downloadAndVerify(ctx context.Context, artifactName, version string, f binrep.FileEntry, stagingDir string) (string, error) {
	key := binrep.PathFile(artifactName, version, f.Name)
	rc, err := p.backend.Read(ctx, key)
	if err != nil {
		return "", fmt.Errorf("puller: download %s: %w", key, err)
	}
	defer rc.Close()

	stagedPath := filepath.Join(stagingDir, filepath.Base(f.Name))
	out, err := os.Create(stagedPath)
	if err != nil {
		return "", fmt.Errorf("puller: stage %s: %w", f.Name, err)
	}

	tee, err := checksum.NewTeeHasher(out, checksum.Method(f.ChecksumMethod))
	if err != nil {
		out.Close()
		return "", err
	}

	prog := p.reporter.New(f.Name, 0)
	defer prog.Done()
	source := progress.NewReaderAdapter(rc, prog)

	p.log.Info("downloading file", "artifact", artifactName, "version", version, "name", f.Name)
	if _, err := io.Copy(tee, source); err != nil {
		out.Close()
		return "", fmt.Errorf("puller: write %s: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("puller: close %s: %w", f.Name, err)
	}

	if !checksum.Equal(tee.Sum(), f.Checksum) {
		os.Remove(stagedPath)
		return "", fmt.Errorf("%w: %s", ErrChecksumMismatch, f.Name)
	}
	return stagedPath, nil
}
