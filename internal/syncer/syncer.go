// Package syncer makes a Puller pull idempotent: repeated syncs against
// an already-current destination do nothing, tracked through a sidecar
// state file written next to the pulled files.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"binrep/internal/binrep"
	"binrep/internal/sane"
)

// Resolver resolves a version requirement to a concrete version and reads
// its manifest, the subset of *repository.Repository's behavior a Syncer
// needs to decide whether a pull is necessary.
type Resolver interface {
	Resolve(ctx context.Context, artifactName, versionReq string) (string, error)
	ReadManifest(ctx context.Context, artifactName, version string) (binrep.Manifest, error)
}

// Puller is the subset of *puller.Puller's behavior a Syncer depends on.
type Puller interface {
	Pull(ctx context.Context, artifactName, versionReq, destDir string, overwrite bool) (binrep.Manifest, error)
}

// Syncer wraps a Resolver and a Puller with a sidecar SyncState file so
// that syncing the same artifact and requirement against an
// already-current destination does not re-download anything.
type Syncer struct {
	resolver Resolver
	puller   Puller
}

// New returns a Syncer that resolves through resolver and downloads
// through p.
func New(resolver Resolver, p Puller) *Syncer {
	return &Syncer{resolver: resolver, puller: p}
}

func sidecarPath(destDir, artifactName string) string {
	return filepath.Join(destDir, "."+artifactName+"_sync.sane")
}

func readState(path string) (binrep.SyncState, bool, error) {
	var state binrep.SyncState
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, false, nil
		}
		return state, false, fmt.Errorf("syncer: read sync state: %w", err)
	}
	if err := sane.Unmarshal(data, &state); err != nil {
		return state, false, fmt.Errorf("syncer: decode sync state: %w", err)
	}
	return state, true, nil
}

func writeState(path string, state binrep.SyncState) error {
	data, err := sane.Marshal(&state)
	if err != nil {
		return fmt.Errorf("syncer: encode sync state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("syncer: write sync state: %w", err)
	}
	return nil
}

// Sync resolves versionReq against artifactName. If destDir's sidecar
// already records that exact resolved version as present, Sync returns
// the manifest without downloading anything and reports pulled=false.
// Otherwise it pulls (overwriting any stale files at destDir) and
// records the new state, reporting pulled=true.
func (s *Syncer) Sync(ctx context.Context, artifactName, versionReq, destDir string) (manifest binrep.Manifest, pulled bool, err error) {
	version, err := s.resolver.Resolve(ctx, artifactName, versionReq)
	if err != nil {
		return binrep.Manifest{}, false, err
	}

	path := sidecarPath(destDir, artifactName)
	state, exists, err := readState(path)
	if err != nil {
		return binrep.Manifest{}, false, err
	}

	if exists && state.Artifact == artifactName && state.Version == version && allFilesExist(destDir, state.Files) {
		m, err := s.resolver.ReadManifest(ctx, artifactName, version)
		if err != nil {
			return binrep.Manifest{}, false, err
		}
		return m, false, nil
	}

	m, err := s.puller.Pull(ctx, artifactName, version, destDir, true)
	if err != nil {
		return binrep.Manifest{}, false, err
	}
	names := make([]string, len(m.Files))
	for i, f := range m.Files {
		names[i] = f.Name
	}
	if err := writeState(path, binrep.SyncState{Artifact: artifactName, Version: m.Version, Files: names}); err != nil {
		return m, true, err
	}
	return m, true, nil
}

// allFilesExist reports whether every name in files is present directly
// under destDir. A missing file means the recorded state no longer
// reflects what's on disk, so Sync must re-pull rather than trust it.
func allFilesExist(destDir string, files []string) bool {
	for _, name := range files {
		if _, err := os.Stat(filepath.Join(destDir, name)); err != nil {
			return false
		}
	}
	return true
}

// ErrNotSynced is returned by State when destDir has no sync sidecar for
// artifactName.
var ErrNotSynced = errors.New("syncer: no sync state recorded")

// State returns the last artifact version Sync recorded as present at
// destDir.
func State(destDir, artifactName string) (binrep.SyncState, error) {
	state, exists, err := readState(sidecarPath(destDir, artifactName))
	if err != nil {
		return state, err
	}
	if !exists {
		return state, fmt.Errorf("%w: %s", ErrNotSynced, artifactName)
	}
	return state, nil
}
