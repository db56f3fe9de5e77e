// Package signing implements the Signer and Verifier roles used to protect
// a manifest's file list: HMAC-SHA{256,384,512} for symmetric keys and
// Ed25519 for asymmetric ones.
package signing

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
)

// Method identifies a signature algorithm. Values match the
// signature_method recorded alongside a manifest's signature.
type Method string

const (
	HMACSHA256 Method = "HMAC_SHA256"
	HMACSHA384 Method = "HMAC_SHA384"
	HMACSHA512 Method = "HMAC_SHA512"
	ED25519    Method = "ED25519"
)

// ErrUnknownMethod is returned for a Method not among the constants above.
var ErrUnknownMethod = errors.New("signing: unknown method")

// ErrVerificationFailed is returned by Verify when a signature does not
// match, whether due to tampering, a wrong key, or corruption.
var ErrVerificationFailed = errors.New("signing: verification failed")

// FileDigest is the minimal pair signed over: a file's name and its hex
// checksum. The canonical bytes a signature covers are the concatenation,
// across every file in manifest order, of each name's UTF-8 bytes directly
// followed by each checksum's UTF-8 bytes — no separators, and notably no
// checksum_method, matching the historical wire format every existing
// manifest was signed against.
type FileDigest struct {
	Name     string
	Checksum string
}

// CanonicalBytes builds the exact byte sequence a manifest's signature is
// computed and verified over.
func CanonicalBytes(files []FileDigest) []byte {
	var buf []byte
	for _, f := range files {
		buf = append(buf, f.Name...)
		buf = append(buf, f.Checksum...)
	}
	return buf
}

// Signer produces a signature over a message.
type Signer interface {
	Sign(msg []byte) ([]byte, error)
	Method() Method
	KeyID() string
}

// Verifier checks a signature against a message.
type Verifier interface {
	Verify(msg, signature []byte) error
}

// hmacSigner signs with a symmetric key under one of the HMAC methods.
type hmacSigner struct {
	keyID  string
	method Method
	key    []byte
}

// NewHMACSigner returns a Signer for method (one of HMACSHA256/384/512)
// keyed by key and identified by keyID.
func NewHMACSigner(keyID string, method Method, key []byte) (Signer, error) {
	if _, err := hmacHash(method); err != nil {
		return nil, err
	}
	return &hmacSigner{keyID: keyID, method: method, key: key}, nil
}

func (s *hmacSigner) Method() Method { return s.method }
func (s *hmacSigner) KeyID() string  { return s.keyID }

func (s *hmacSigner) Sign(msg []byte) ([]byte, error) {
	newHash, err := hmacHash(s.method)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(newHash, s.key)
	mac.Write(msg)
	return mac.Sum(nil), nil
}

// hmacVerifier checks a symmetric signature by recomputing it and comparing
// in constant time.
type hmacVerifier struct {
	method Method
	key    []byte
}

// NewHMACVerifier returns a Verifier for method keyed by key.
func NewHMACVerifier(method Method, key []byte) (Verifier, error) {
	if _, err := hmacHash(method); err != nil {
		return nil, err
	}
	return &hmacVerifier{method: method, key: key}, nil
}

func (v *hmacVerifier) Verify(msg, signature []byte) error {
	newHash, err := hmacHash(v.method)
	if err != nil {
		return err
	}
	mac := hmac.New(newHash, v.key)
	mac.Write(msg)
	want := mac.Sum(nil)
	if subtle.ConstantTimeCompare(want, signature) != 1 {
		return ErrVerificationFailed
	}
	return nil
}

func hmacHash(method Method) (func() hash.Hash, error) {
	switch method {
	case HMACSHA256:
		return sha256.New, nil
	case HMACSHA384:
		return sha512.New384, nil
	case HMACSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// ed25519Signer signs with a PKCS8-encoded Ed25519 private key.
type ed25519Signer struct {
	keyID string
	priv  ed25519.PrivateKey
}

// NewEd25519Signer returns a Signer that signs with priv, a PKCS8-encoded
// Ed25519 private key as binrep's config stores it.
func NewEd25519Signer(keyID string, pkcs8 []byte) (Signer, error) {
	key, err := x509.ParsePKCS8PrivateKey(pkcs8)
	if err != nil {
		return nil, fmt.Errorf("signing: parse ed25519 private key: %w", err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signing: pkcs8 key is not ed25519")
	}
	return &ed25519Signer{keyID: keyID, priv: priv}, nil
}

func (s *ed25519Signer) Method() Method { return ED25519 }
func (s *ed25519Signer) KeyID() string  { return s.keyID }

func (s *ed25519Signer) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, msg), nil
}

// ed25519Verifier checks a signature against a raw Ed25519 public key.
type ed25519Verifier struct {
	pub ed25519.PublicKey
}

// NewEd25519Verifier returns a Verifier for the raw 32-byte public key pub.
func NewEd25519Verifier(pub []byte) (Verifier, error) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("signing: ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	return &ed25519Verifier{pub: ed25519.PublicKey(pub)}, nil
}

func (v *ed25519Verifier) Verify(msg, signature []byte) error {
	if !ed25519.Verify(v.pub, msg, signature) {
		return ErrVerificationFailed
	}
	return nil
}

// EncodeSignature base64-encodes a raw signature for storage in a manifest.
func EncodeSignature(sig []byte) string {
	return base64.StdEncoding.EncodeToString(sig)
}

// DecodeSignature reverses EncodeSignature.
func DecodeSignature(s string) ([]byte, error) {
	sig, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("signing: decode signature: %w", err)
	}
	return sig, nil
}
