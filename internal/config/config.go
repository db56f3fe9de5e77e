// Package config decodes a binrep configuration file: which backend to
// talk to, which keys are available for signing and verifying, and the
// default checksum/signature methods to use when publishing.
package config

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"binrep/internal/backend"
	"binrep/internal/binrep"
	"binrep/internal/notify"
	"binrep/internal/sane"
	"binrep/internal/signing"
)

// BackendConfig selects and configures the repository backend.
type BackendConfig struct {
	Type    string `sane:"type"`
	Root    string `sane:"root,omitempty"`
	Bucket  string `sane:"bucket,omitempty"`
	Region  string `sane:"region,omitempty"`
	Profile string `sane:"profile,omitempty"`
}

// PublishParameters names the default checksum and signature methods, and
// which configured key to sign with, used by `push` when the CLI doesn't
// override them.
type PublishParameters struct {
	SignatureMethod   string `sane:"signature_method"`
	ChecksumMethod    string `sane:"checksum_method"`
	HMACSigningKey    string `sane:"hmac_signing_key,omitempty"`
	Ed25519SigningKey string `sane:"ed25519_signing_key,omitempty"`
}

// Config is the decoded shape of a config.sane file.
type Config struct {
	Backend           BackendConfig     `sane:"backend"`
	PublishParameters PublishParameters `sane:"publish_parameters"`
	HMACKeys          map[string]string `sane:"hmac_keys,omitempty"`
	Ed25519Keys       map[string]string `sane:"ed25519_keys,omitempty"`
	Slack             notify.Config     `sane:"slack"`
}

// Default returns a skeleton Config suitable for `config init`: a
// filesystem backend rooted at root, SHA256/HMAC_SHA256 as the publish
// defaults, and no keys configured yet (the operator must add one to
// hmac_keys before push will succeed).
func Default(root string) Config {
	return Config{
		Backend: BackendConfig{Type: "file", Root: root},
		PublishParameters: PublishParameters{
			SignatureMethod: "HMAC_SHA256",
			ChecksumMethod:  "SHA256",
			HMACSigningKey:  "default",
		},
		HMACKeys: map[string]string{},
	}
}

// ErrKeyNotFound is returned when a config references a key ID that isn't
// present in hmac_keys/ed25519_keys.
var ErrKeyNotFound = fmt.Errorf("config: key not found")

// Read decodes a Config from r.
func Read(r io.Reader) (Config, error) {
	var cfg Config
	data, err := io.ReadAll(r)
	if err != nil {
		return cfg, fmt.Errorf("config: read: %w", err)
	}
	if err := sane.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// ReadFromFile decodes a Config from the file at path.
func ReadFromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	cfg, err := Read(f)
	if err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Write encodes cfg to path, creating parent directories as needed. It
// refuses to overwrite an existing file.
func Write(path string, cfg Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: create directory for %s: %w", path, err)
	}
	data, err := sane.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// BackendConfig turns cfg's [backend] section into a backend.Config.
func (c Config) BackendConfig() (backend.Config, error) {
	switch c.Backend.Type {
	case "file":
		return backend.Config{Type: backend.TypeFilesystem, Root: c.Backend.Root}, nil
	case "s3":
		return backend.Config{
			Type:    backend.TypeS3,
			Bucket:  c.Backend.Bucket,
			Region:  c.Backend.Region,
			Profile: c.Backend.Profile,
		}, nil
	case "memory":
		return backend.Config{Type: backend.TypeMemory}, nil
	default:
		return backend.Config{}, fmt.Errorf("config: unknown backend type %q", c.Backend.Type)
	}
}

// Verifier resolves the Verifier for a signature method and key ID, as
// referenced by a manifest's Signature.
func (c Config) Verifier(method binrep.SignatureMethod, keyID string) (signing.Verifier, error) {
	switch signing.Method(method) {
	case signing.HMACSHA256, signing.HMACSHA384, signing.HMACSHA512:
		key, ok := c.HMACKeys[keyID]
		if !ok {
			return nil, fmt.Errorf("%w: hmac key %q", ErrKeyNotFound, keyID)
		}
		raw, err := base64.StdEncoding.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("config: decode hmac key %q: %w", keyID, err)
		}
		return signing.NewHMACVerifier(signing.Method(method), raw)
	case signing.ED25519:
		encoded, ok := c.Ed25519Keys[keyID]
		if !ok {
			return nil, fmt.Errorf("%w: ed25519 key %q", ErrKeyNotFound, keyID)
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("config: decode ed25519 key %q: %w", keyID, err)
		}
		return signing.NewEd25519Verifier(raw)
	default:
		return nil, fmt.Errorf("%w: %s", signing.ErrUnknownMethod, method)
	}
}

// Signer resolves the Signer named by cfg's publish_parameters, for use by
// `push` when the CLI doesn't override the signing key.
func (c Config) Signer() (signing.Signer, error) {
	method := signing.Method(c.PublishParameters.SignatureMethod)
	switch method {
	case signing.HMACSHA256, signing.HMACSHA384, signing.HMACSHA512:
		keyID := c.PublishParameters.HMACSigningKey
		if keyID == "" {
			return nil, fmt.Errorf("config: no hmac_signing_key configured")
		}
		key, ok := c.HMACKeys[keyID]
		if !ok {
			return nil, fmt.Errorf("%w: hmac key %q", ErrKeyNotFound, keyID)
		}
		raw, err := base64.StdEncoding.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("config: decode hmac key %q: %w", keyID, err)
		}
		return signing.NewHMACSigner(keyID, method, raw)
	case signing.ED25519:
		keyID := c.PublishParameters.Ed25519SigningKey
		if keyID == "" {
			return nil, fmt.Errorf("config: no ed25519_signing_key configured")
		}
		encoded, ok := c.Ed25519Keys[keyID]
		if !ok {
			return nil, fmt.Errorf("%w: ed25519 key %q", ErrKeyNotFound, keyID)
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("config: decode ed25519 key %q: %w", keyID, err)
		}
		return signing.NewEd25519Signer(keyID, raw)
	default:
		return nil, fmt.Errorf("%w: %s", signing.ErrUnknownMethod, c.PublishParameters.SignatureMethod)
	}
}

// ChecksumMethod returns the publish_parameters checksum method.
func (c Config) ChecksumMethod() binrep.ChecksumMethod {
	return binrep.ChecksumMethod(c.PublishParameters.ChecksumMethod)
}
