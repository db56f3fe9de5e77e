package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"binrep/internal/backend"
	"binrep/internal/binrep"
	"binrep/internal/signing"
)

const sampleConfig = `
[backend]
type = "file"
root = "/var/lib/binrep"

[publish_parameters]
signature_method = "HMAC_SHA256"
checksum_method = "SHA256"
hmac_signing_key = "k1"

[hmac_keys]
k1 = "c2VjcmV0LWtleS1ieXRlcw=="
`

func TestReadDecodesAllSections(t *testing.T) {
	cfg, err := Read(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cfg.Backend.Type != "file" || cfg.Backend.Root != "/var/lib/binrep" {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.PublishParameters.SignatureMethod != "HMAC_SHA256" {
		t.Errorf("signature_method = %q", cfg.PublishParameters.SignatureMethod)
	}
	if cfg.HMACKeys["k1"] != "c2VjcmV0LWtleS1ieXRlcw==" {
		t.Errorf("hmac_keys[k1] = %q", cfg.HMACKeys["k1"])
	}
}

func TestBackendConfigFile(t *testing.T) {
	cfg, err := Read(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	bc, err := cfg.BackendConfig()
	if err != nil {
		t.Fatalf("BackendConfig: %v", err)
	}
	if bc.Type != backend.TypeFilesystem || bc.Root != "/var/lib/binrep" {
		t.Errorf("BackendConfig() = %+v", bc)
	}
}

func TestBackendConfigUnknownType(t *testing.T) {
	cfg := Config{Backend: BackendConfig{Type: "bogus"}}
	if _, err := cfg.BackendConfig(); err == nil {
		t.Fatal("expected error for unknown backend type")
	}
}

func TestSignerAndVerifierRoundTripHMAC(t *testing.T) {
	key := []byte("a secret key, long enough for hmac-sha256")
	cfg := Config{
		PublishParameters: PublishParameters{
			SignatureMethod: string(signing.HMACSHA256),
			ChecksumMethod:  string(binrep.SHA256),
			HMACSigningKey:  "k1",
		},
		HMACKeys: map[string]string{"k1": base64.StdEncoding.EncodeToString(key)},
	}

	signer, err := cfg.Signer()
	if err != nil {
		t.Fatalf("Signer: %v", err)
	}
	msg := []byte("hello\x00world")
	sig, err := signer.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	verifier, err := cfg.Verifier(binrep.HMACSHA256, signer.KeyID())
	if err != nil {
		t.Fatalf("Verifier: %v", err)
	}
	if err := verifier.Verify(msg, sig); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestVerifierUnknownKeyID(t *testing.T) {
	cfg := Config{HMACKeys: map[string]string{"k1": base64.StdEncoding.EncodeToString([]byte("x"))}}
	if _, err := cfg.Verifier(binrep.HMACSHA256, "missing"); err == nil {
		t.Fatal("expected error for unknown key id")
	}
}

func TestSignerMissingSigningKeyReference(t *testing.T) {
	cfg := Config{
		PublishParameters: PublishParameters{SignatureMethod: string(signing.HMACSHA256)},
	}
	if _, err := cfg.Signer(); err == nil {
		t.Fatal("expected error when hmac_signing_key is unset")
	}
}

func TestWriteThenReadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.sane")

	cfg := Config{
		Backend: BackendConfig{Type: "file", Root: "/srv/binrep"},
		PublishParameters: PublishParameters{
			SignatureMethod: string(signing.HMACSHA256),
			ChecksumMethod:  string(binrep.SHA256),
			HMACSigningKey:  "k1",
		},
		HMACKeys: map[string]string{"k1": "c2VjcmV0"},
	}

	if err := Write(path, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile: %v", err)
	}
	if got.Backend.Root != cfg.Backend.Root {
		t.Errorf("backend.root = %q, want %q", got.Backend.Root, cfg.Backend.Root)
	}
	if got.HMACKeys["k1"] != "c2VjcmV0" {
		t.Errorf("hmac_keys[k1] = %q", got.HMACKeys["k1"])
	}
}

func TestDefaultWritesAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.sane")

	cfg := Default("/var/lib/binrep/repo")
	if err := Write(path, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile: %v", err)
	}
	if got.Backend.Type != "file" || got.Backend.Root != "/var/lib/binrep/repo" {
		t.Errorf("backend = %+v", got.Backend)
	}
	if got.PublishParameters.HMACSigningKey != "default" {
		t.Errorf("hmac_signing_key = %q, want default", got.PublishParameters.HMACSigningKey)
	}
}

func TestWriteRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.sane")
	if err := os.WriteFile(path, []byte("existing"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := Write(path, Config{}); err == nil {
		t.Fatal("expected error writing over an existing config file")
	}
}
