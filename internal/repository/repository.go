// Package repository implements the read/write operations against a
// binrep backend: listing artifacts and versions, resolving a version
// requirement, reading a signed manifest, and publishing a new version.
package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"binrep/internal/backend"
	"binrep/internal/binrep"
	"binrep/internal/checksum"
	"binrep/internal/progress"
	"binrep/internal/resolver"
	"binrep/internal/sane"
	"binrep/internal/signing"

	"github.com/blang/semver/v4"
)

// ErrVersionAlreadyExists is returned by Publish when the requested
// version is already present in the artifact's versions index.
var ErrVersionAlreadyExists = errors.New("repository: artifact version already exists")

// ErrSignatureInvalid is returned by ReadManifest when a manifest's
// recorded signature does not verify against its file list.
var ErrSignatureInvalid = errors.New("repository: manifest signature is invalid")

// VerifierFactory resolves the Verifier for a given signature method and
// key ID, as recorded in a manifest being read.
type VerifierFactory func(method binrep.SignatureMethod, keyID string) (signing.Verifier, error)

// Repository is the low-level API to a binrep backend: every method reads
// or writes exactly the objects it needs to and does no local caching.
type Repository struct {
	backend  backend.Backend
	verifier VerifierFactory
	log      binrep.Logger
	reporter progress.Reporter
}

// New returns a Repository backed by b. verifier resolves the Verifier
// used to check a manifest's signature when it is read.
func New(b backend.Backend, verifier VerifierFactory, log binrep.Logger) *Repository {
	if log == nil {
		log = binrep.NewNopLogger()
	}
	return &Repository{backend: b, verifier: verifier, log: log, reporter: progress.NewNopReporter()}
}

// WithReporter sets the progress.Reporter used to report per-file byte
// progress during Publish uploads. Passing nil restores the no-op
// reporter.
func (r *Repository) WithReporter(rep progress.Reporter) *Repository {
	if rep == nil {
		rep = progress.NewNopReporter()
	}
	r.reporter = rep
	return r
}

// ListArtifacts returns every artifact name known to the repository. A
// repository with no artifacts.sane object yet is treated as empty rather
// than an error.
func (r *Repository) ListArtifacts(ctx context.Context) (binrep.ArtifactsIndex, error) {
	var idx binrep.ArtifactsIndex
	data, err := r.readObject(ctx, binrep.PathArtifacts())
	if errors.Is(err, backend.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return idx, err
	}
	if err := sane.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("repository: decode artifacts index: %w", err)
	}
	return idx, nil
}

// ListVersions returns every published version of artifactName. A missing
// versions.sane object is treated as an empty version list. Entries that
// do not parse as semver are logged as a warning and left out.
func (r *Repository) ListVersions(ctx context.Context, artifactName string) (binrep.VersionsIndex, error) {
	var idx binrep.VersionsIndex
	if err := binrep.ValidateArtifactName(artifactName); err != nil {
		return idx, err
	}
	data, err := r.readObject(ctx, binrep.PathVersions(artifactName))
	if errors.Is(err, backend.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return idx, err
	}
	if err := sane.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("repository: decode versions index for %s: %w", artifactName, err)
	}
	valid := make([]string, 0, len(idx.Versions))
	for _, v := range idx.Versions {
		if _, err := semver.Parse(v); err != nil {
			r.log.Warn("ignoring unparsable version", "artifact", artifactName, "version", v, "error", err)
			continue
		}
		valid = append(valid, v)
	}
	idx.Versions = valid
	return idx, nil
}

// Resolve turns a version requirement (see internal/resolver) into one
// concrete published version of artifactName.
func (r *Repository) Resolve(ctx context.Context, artifactName, versionReq string) (string, error) {
	versions, err := r.ListVersions(ctx, artifactName)
	if err != nil {
		return "", err
	}
	return resolver.Resolve(versionReq, versions.Versions)
}

// ReadManifest reads and signature-verifies the manifest for artifactName
// at version.
func (r *Repository) ReadManifest(ctx context.Context, artifactName, version string) (binrep.Manifest, error) {
	var m binrep.Manifest
	if err := binrep.ValidateArtifactName(artifactName); err != nil {
		return m, err
	}
	data, err := r.readObject(ctx, binrep.PathManifest(artifactName, version))
	if err != nil {
		return m, err
	}
	if err := sane.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("repository: decode manifest for %s/%s: %w", artifactName, version, err)
	}
	if err := r.verifyManifest(m); err != nil {
		return m, err
	}
	return m, nil
}

func (r *Repository) verifyManifest(m binrep.Manifest) error {
	if r.verifier == nil {
		return nil
	}
	v, err := r.verifier(m.Signature.SignatureMethod, m.Signature.KeyID)
	if err != nil {
		return fmt.Errorf("repository: resolve verifier for key %s: %w", m.Signature.KeyID, err)
	}
	sig, err := signing.DecodeSignature(m.Signature.Signature)
	if err != nil {
		return err
	}
	digests := make([]signing.FileDigest, len(m.Files))
	for i, f := range m.Files {
		digests[i] = signing.FileDigest{Name: f.Name, Checksum: f.Checksum}
	}
	if err := v.Verify(signing.CanonicalBytes(digests), sig); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return nil
}

// PublishFile names a local file and the name it is published under, as
// taken by Publish.
type PublishFile struct {
	LocalPath string
	Name      string
}

// Publish computes checksums for every file, signs the resulting file
// list with signer, uploads the files, and writes the manifest, versions
// index, and artifacts index — in that order, so a reader can never
// observe a version or artifact name that doesn't yet have a readable
// manifest behind it.
func (r *Repository) Publish(ctx context.Context, artifactName, version string, files []PublishFile, method binrep.ChecksumMethod, signer signing.Signer) (binrep.Manifest, error) {
	var m binrep.Manifest
	if err := binrep.ValidateArtifactName(artifactName); err != nil {
		return m, err
	}

	versions, err := r.ListVersions(ctx, artifactName)
	if err != nil {
		return m, err
	}
	if versions.Contains(version) {
		return m, fmt.Errorf("%w: %s %s", ErrVersionAlreadyExists, artifactName, version)
	}

	entries := make([]binrep.FileEntry, len(files))
	digests := make([]signing.FileDigest, len(files))
	for i, f := range files {
		sum, mode, err := hashLocalFile(f.LocalPath, method)
		if err != nil {
			return m, fmt.Errorf("repository: hash %s: %w", f.LocalPath, err)
		}
		entries[i] = binrep.FileEntry{Name: f.Name, Checksum: sum, ChecksumMethod: method, UnixMode: mode}
		digests[i] = signing.FileDigest{Name: f.Name, Checksum: sum}
	}

	sig, err := signer.Sign(signing.CanonicalBytes(digests))
	if err != nil {
		return m, fmt.Errorf("repository: sign manifest: %w", err)
	}

	m = binrep.Manifest{
		Version: version,
		Files:   entries,
		Signature: binrep.Signature{
			KeyID:           signer.KeyID(),
			Signature:       signing.EncodeSignature(sig),
			SignatureMethod: binrep.SignatureMethod(signer.Method()),
		},
	}

	for _, f := range files {
		if err := r.uploadFile(ctx, artifactName, version, f); err != nil {
			return m, err
		}
	}

	if err := r.writeManifest(ctx, artifactName, version, m); err != nil {
		return m, err
	}

	versions.Versions = append(versions.Versions, version)
	if err := r.writeVersions(ctx, artifactName, versions); err != nil {
		return m, err
	}

	artifacts, err := r.ListArtifacts(ctx)
	if err != nil {
		return m, err
	}
	if !artifacts.Contains(artifactName) {
		artifacts.Artifacts = append(artifacts.Artifacts, artifactName)
		if err := r.writeArtifacts(ctx, artifacts); err != nil {
			return m, err
		}
	}

	return m, nil
}

func (r *Repository) uploadFile(ctx context.Context, artifactName, version string, f PublishFile) error {
	src, err := os.Open(f.LocalPath)
	if err != nil {
		return fmt.Errorf("repository: open %s: %w", f.LocalPath, err)
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("repository: stat %s: %w", f.LocalPath, err)
	}
	key := binrep.PathFile(artifactName, version, f.Name)
	r.log.Info("uploading file", "key", key, "size", info.Size())

	prog := r.reporter.New(f.Name, int(info.Size()))
	defer prog.Done()
	source := progress.NewReaderAdapter(src, prog)

	if err := r.backend.Write(ctx, key, source, info.Size()); err != nil {
		return fmt.Errorf("repository: upload %s: %w", key, err)
	}
	return nil
}

func (r *Repository) writeManifest(ctx context.Context, artifactName, version string, m binrep.Manifest) error {
	data, err := sane.Marshal(&m)
	if err != nil {
		return fmt.Errorf("repository: encode manifest: %w", err)
	}
	key := binrep.PathManifest(artifactName, version)
	r.log.Info("writing manifest", "key", key)
	return r.backend.Write(ctx, key, bytes.NewReader(data), int64(len(data)))
}

func (r *Repository) writeVersions(ctx context.Context, artifactName string, idx binrep.VersionsIndex) error {
	data, err := sane.Marshal(&idx)
	if err != nil {
		return fmt.Errorf("repository: encode versions index: %w", err)
	}
	key := binrep.PathVersions(artifactName)
	r.log.Info("writing versions index", "key", key)
	return r.backend.Write(ctx, key, bytes.NewReader(data), int64(len(data)))
}

func (r *Repository) writeArtifacts(ctx context.Context, idx binrep.ArtifactsIndex) error {
	data, err := sane.Marshal(&idx)
	if err != nil {
		return fmt.Errorf("repository: encode artifacts index: %w", err)
	}
	key := binrep.PathArtifacts()
	r.log.Info("writing artifacts index", "key", key)
	return r.backend.Write(ctx, key, bytes.NewReader(data), int64(len(data)))
}

func (r *Repository) readObject(ctx context.Context, key string) ([]byte, error) {
	rc, err := r.backend.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("repository: read %s: %w", key, err)
	}
	return data, nil
}

func hashLocalFile(path string, method binrep.ChecksumMethod) (string, *int, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	sum, err := checksum.Sum(checksum.Method(method), f)
	if err != nil {
		return "", nil, err
	}
	info, err := f.Stat()
	if err != nil {
		return "", nil, err
	}
	mode := int(info.Mode().Perm())
	return sum, &mode, nil
}

