// Package binrep holds the domain types shared by every other package:
// the on-disk metadata shapes, the paths they live at, and the artifact
// name validation rule they're all keyed by.
package binrep

import (
	"errors"
	"fmt"
)

// ErrInvalidArtifactName is returned by ValidateArtifactName.
var ErrInvalidArtifactName = errors.New("binrep: invalid artifact name")

// ValidateArtifactName enforces the naming rule every artifact name must
// satisfy: non-empty, ASCII alphanumeric plus '-', '_', '.'.
func ValidateArtifactName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidArtifactName)
	}
	for _, c := range []byte(name) {
		alnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !alnum && c != '-' && c != '_' && c != '.' {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidArtifactName, name, string(c))
		}
	}
	return nil
}

// ChecksumMethod identifies the digest family recorded for a file entry.
type ChecksumMethod string

const (
	SHA256 ChecksumMethod = "SHA256"
	SHA384 ChecksumMethod = "SHA384"
	SHA512 ChecksumMethod = "SHA512"
)

// SignatureMethod identifies the algorithm a manifest's signature was
// produced under.
type SignatureMethod string

const (
	HMACSHA256 SignatureMethod = "HMAC_SHA256"
	HMACSHA384 SignatureMethod = "HMAC_SHA384"
	HMACSHA512 SignatureMethod = "HMAC_SHA512"
	ED25519    SignatureMethod = "ED25519"
)

// FileEntry describes one file within an artifact version.
type FileEntry struct {
	Name           string `sane:"name"`
	Checksum       string `sane:"checksum"`
	ChecksumMethod ChecksumMethod `sane:"checksum_method"`
	// UnixMode is the file's permission bits (masked to 0o777), preserved
	// across push/pull so executables stay executable. Absent for files
	// pushed before this field existed.
	UnixMode *int `sane:"unix_mode,omitempty"`
}

// Signature covers the canonical bytes built from every FileEntry's name
// and checksum, in order.
type Signature struct {
	KeyID           string          `sane:"key_id"`
	Signature       string          `sane:"signature"`
	SignatureMethod SignatureMethod `sane:"signature_method"`
}

// Manifest is the metadata recorded for one published artifact version.
type Manifest struct {
	Version   string      `sane:"version"`
	Files     []FileEntry `sane:"files"`
	Signature Signature   `sane:"signature"`
}

// ArtifactsIndex lists every artifact name known to a repository.
type ArtifactsIndex struct {
	Artifacts []string `sane:"artifacts"`
}

// VersionsIndex lists every published version of one artifact.
type VersionsIndex struct {
	Versions []string `sane:"versions"`
}

// SyncState is the sidecar a Syncer writes next to a pulled artifact so a
// later sync can tell whether that destination is already current.
type SyncState struct {
	Artifact string   `sane:"artifact"`
	Version  string   `sane:"version"`
	Files    []string `sane:"files"`
}

// Contains reports whether an ArtifactsIndex already lists name.
func (a ArtifactsIndex) Contains(name string) bool {
	for _, n := range a.Artifacts {
		if n == name {
			return true
		}
	}
	return false
}

// Contains reports whether a VersionsIndex already lists version.
func (v VersionsIndex) Contains(version string) bool {
	for _, x := range v.Versions {
		if x == version {
			return true
		}
	}
	return false
}
